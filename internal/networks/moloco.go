// Moloco adapter: the reporting API is asynchronous — a request call
// returns a job id, and the caller polls a status endpoint until the
// job is ready; the status response that reports "done" carries the
// result rows.
// Grounded on the teacher's ingester.network_poller.go ticker-driven
// wait loop, adapted from "poll forever on an interval" to "poll with
// a bounded number of attempts and exponential backoff", since a report
// job is expected to finish in seconds, not run indefinitely.
package networks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

type MolocoConfig struct {
	APIKey  string
	BaseURL string
}

type MolocoFetcher struct {
	cfg    MolocoConfig
	client *httpclient.Client
}

func NewMoloco(cfg MolocoConfig, client *httpclient.Client) *MolocoFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.moloco.cloud/reporting/v1"
	}
	return &MolocoFetcher{cfg: cfg, client: client}
}

func (f *MolocoFetcher) Name() schema.Network { return schema.NetworkMoloco }

func (f *MolocoFetcher) authHeader() map[string][]string {
	return map[string][]string{"Authorization": {"Bearer " + f.cfg.APIKey}}
}

func (f *MolocoFetcher) requestJob(ctx context.Context, window fetcher.DateRange) (string, error) {
	resp, err := f.client.Do(ctx, httpclient.Request{
		Method:  "POST",
		URL:     f.cfg.BaseURL + "/jobs",
		Headers: f.authHeader(),
		Body: []byte(fmt.Sprintf(
			`{"start_date":%q,"end_date":%q,"dimensions":["date","platform","ad_format"]}`,
			fmtDate(window.Start), fmtDate(window.End),
		)),
	})
	if err != nil {
		return "", classifyHTTPFailure("moloco", err)
	}
	var decoded struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return "", shapeError("moloco", fmt.Errorf("decode job response: %w", err))
	}
	if decoded.JobID == "" {
		return "", shapeError("moloco", fmt.Errorf("job response missing job_id"))
	}
	return decoded.JobID, nil
}

const molocoMaxPolls = 10

func (f *MolocoFetcher) awaitJob(ctx context.Context, jobID string) ([]rawRow, error) {
	delay := 2 * time.Second
	for attempt := 0; attempt < molocoMaxPolls; attempt++ {
		resp, err := f.client.Do(ctx, httpclient.Request{
			Method:  "GET",
			URL:     f.cfg.BaseURL + "/jobs/" + jobID,
			Headers: f.authHeader(),
		})
		if err != nil {
			return nil, classifyHTTPFailure("moloco", err)
		}

		var decoded struct {
			Status string   `json:"status"`
			Rows   []rawRow `json:"rows"`
		}
		if err := json.Unmarshal(resp.Body, &decoded); err != nil {
			return nil, shapeError("moloco", fmt.Errorf("decode status response: %w", err))
		}

		switch decoded.Status {
		case "done":
			return decoded.Rows, nil
		case "failed":
			return nil, shapeError("moloco", fmt.Errorf("report job %s failed", jobID))
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	return nil, shapeError("moloco", fmt.Errorf("report job %s did not complete after %d polls", jobID, molocoMaxPolls))
}

func (f *MolocoFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	jobID, err := f.requestJob(ctx, window)
	if err != nil {
		return fetcher.RawBreakdown{}, err
	}
	rows, err := f.awaitJob(ctx, jobID)
	if err != nil {
		return fetcher.RawBreakdown{}, err
	}

	acc := fetcher.NewAccumulator(schema.NetworkMoloco, window)
	for _, r := range rows {
		platform := schema.NormalizePlatform(stringField(r, "platform"))
		adType, ok := schema.NormalizeAdType(stringField(r, "ad_format"))
		if !ok {
			continue
		}
		date := stringField(r, "date")
		revenue, _ := schema.CoerceNumber(r["revenue"])
		impressions, _ := schema.CoerceNumber(r["impressions"])
		acc.Accumulate(platform, adType, date, revenue, int64(impressions))
	}
	return acc.Finalize(), nil
}
