// Liftoff (Vungle) adapter: static bearer API key, flat per-day rows.
package networks

import (
	"context"
	"encoding/json"
	"fmt"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

type LiftoffConfig struct {
	APIKey  string
	AppID   string
	BaseURL string
}

type LiftoffFetcher struct {
	cfg    LiftoffConfig
	client *httpclient.Client
}

func NewLiftoff(cfg LiftoffConfig, client *httpclient.Client) *LiftoffFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://report.api.vungle.com/v2/report"
	}
	return &LiftoffFetcher{cfg: cfg, client: client}
}

func (f *LiftoffFetcher) Name() schema.Network { return schema.NetworkLiftoff }

func (f *LiftoffFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	resp, err := f.client.Do(ctx, httpclient.Request{
		Method: "GET",
		URL:    f.cfg.BaseURL,
		Query: map[string][]string{
			"application_id": {f.cfg.AppID},
			"start":          {fmtDate(window.Start)},
			"end":            {fmtDate(window.End)},
			"group_by":       {"day,os,placement_type"},
		},
		Headers: map[string][]string{"Authorization": {"Bearer " + f.cfg.APIKey}},
	})
	if err != nil {
		return fetcher.RawBreakdown{}, classifyHTTPFailure("liftoff", err)
	}

	var decoded struct {
		Report []rawRow `json:"report"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fetcher.RawBreakdown{}, shapeError("liftoff", fmt.Errorf("decode: %w", err))
	}

	acc := fetcher.NewAccumulator(schema.NetworkLiftoff, window)
	for _, r := range decoded.Report {
		platform := schema.NormalizePlatform(stringField(r, "os"))
		adType, ok := schema.NormalizeAdType(stringField(r, "placement_type"))
		if !ok {
			continue
		}
		date := stringField(r, "day")
		revenue, _ := schema.CoerceNumber(r["earnings"])
		impressions, _ := schema.CoerceNumber(r["impressions"])
		acc.Accumulate(platform, adType, date, revenue, int64(impressions))
	}
	return acc.Finalize(), nil
}
