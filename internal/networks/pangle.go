// Pangle adapter: the reporting API only accepts single-day queries and
// documents a 5-requests-per-second cap, so this is the one adapter
// that constructs its own httpclient.Client with WithQPS rather than
// sharing the caller's — and the one that uses dayRange to iterate the
// window one calendar day at a time (spec.md §4.5 "single-day-only
// networks").
package networks

import (
	"context"
	"encoding/json"
	"fmt"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

const pangleQPS = 5

type PangleConfig struct {
	APIKey  string
	AppID   string
	BaseURL string
}

type PangleFetcher struct {
	cfg    PangleConfig
	client *httpclient.Client
}

// NewPangle takes no client from the caller and builds its own
// QPS-limited one, since Pangle's rate cap is a property of the
// adapter, not of whatever client the orchestrator happens to pass in.
func NewPangle(cfg PangleConfig) *PangleFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://open-api.pangleglobal.com/union_media/report"
	}
	return &PangleFetcher{cfg: cfg, client: httpclient.New(httpclient.WithQPS(pangleQPS))}
}

func (f *PangleFetcher) Name() schema.Network { return schema.NetworkPangle }

func (f *PangleFetcher) fetchDay(ctx context.Context, day string) ([]rawRow, error) {
	resp, err := f.client.Do(ctx, httpclient.Request{
		Method: "GET",
		URL:    f.cfg.BaseURL,
		Query: map[string][]string{
			"app_id":    {f.cfg.AppID},
			"date":      {day},
			"dimension": {"os,ad_slot_type"},
		},
		Headers: map[string][]string{"Authorization": {f.cfg.APIKey}},
	})
	if err != nil {
		return nil, classifyHTTPFailure("pangle", err)
	}
	var decoded struct {
		Data []rawRow `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, shapeError("pangle", fmt.Errorf("decode %s: %w", day, err))
	}
	return decoded.Data, nil
}

func (f *PangleFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	acc := fetcher.NewAccumulator(schema.NetworkPangle, window)

	for _, day := range dayRange(window) {
		rows, err := f.fetchDay(ctx, day)
		if err != nil {
			return fetcher.RawBreakdown{}, err
		}
		for _, r := range rows {
			platform := schema.NormalizePlatform(stringField(r, "os"))
			adType, ok := schema.NormalizeAdType(stringField(r, "ad_slot_type"))
			if !ok {
				continue
			}
			revenue, _ := schema.CoerceNumber(r["revenue"])
			impressions, _ := schema.CoerceNumber(r["impression"])
			acc.Accumulate(platform, adType, day, revenue, int64(impressions))
		}
	}
	return acc.Finalize(), nil
}
