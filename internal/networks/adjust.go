// Adjust adapter: static API token in a header, one flat JSON array per
// request, no pagination. Grounded on market.FetchFlowPrice's shape
// (single GET, narrow decode struct) with the header-based auth the
// teacher's webhooks.svix_client.go uses for its own outbound calls.
package networks

import (
	"context"
	"encoding/json"
	"fmt"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

// AdjustConfig holds Adjust API credentials.
type AdjustConfig struct {
	APIToken string
	AppToken string
	BaseURL  string
}

type AdjustFetcher struct {
	cfg    AdjustConfig
	client *httpclient.Client
}

func NewAdjust(cfg AdjustConfig, client *httpclient.Client) *AdjustFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://automate.adjust.com/reports-service/report"
	}
	return &AdjustFetcher{cfg: cfg, client: client}
}

func (f *AdjustFetcher) Name() schema.Network { return schema.NetworkAdjust }

func (f *AdjustFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	resp, err := f.client.Do(ctx, httpclient.Request{
		Method: "GET",
		URL:    f.cfg.BaseURL,
		Query: map[string][]string{
			"app_token":   {f.cfg.AppToken},
			"date_period": {fmtDate(window.Start) + ":" + fmtDate(window.End)},
			"dimensions":  {"day,os_name,network_name,ad_type"},
			"metrics":     {"network_ad_revenue,ad_impressions"},
		},
		Headers: map[string][]string{"Authorization": {"Token token=" + f.cfg.APIToken}},
	})
	if err != nil {
		return fetcher.RawBreakdown{}, classifyHTTPFailure("adjust", err)
	}

	var decoded struct {
		Rows []rawRow `json:"rows"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fetcher.RawBreakdown{}, shapeError("adjust", fmt.Errorf("decode: %w", err))
	}

	acc := fetcher.NewAccumulator(schema.NetworkAdjust, window)
	for _, r := range decoded.Rows {
		platform := schema.NormalizePlatform(stringField(r, "os_name"))
		adType, ok := schema.NormalizeAdType(stringField(r, "ad_type"))
		if !ok {
			continue
		}
		date := stringField(r, "day")
		revenue, _ := schema.CoerceNumber(r["network_ad_revenue"])
		impressions, _ := schema.CoerceNumber(r["ad_impressions"])
		acc.Accumulate(platform, adType, date, revenue, int64(impressions))
	}
	return acc.Finalize(), nil
}
