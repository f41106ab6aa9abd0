// Unity Ads adapter: static bearer API key, one flat JSON array per
// call. The plainest of the non-trivial adapters — included as the
// control case against Pangle's QPS cap and Moloco's async job flow.
package networks

import (
	"context"
	"encoding/json"
	"fmt"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

type UnityConfig struct {
	APIKey      string
	OrgCoreID   string
	BaseURL     string
}

type UnityFetcher struct {
	cfg    UnityConfig
	client *httpclient.Client
}

func NewUnity(cfg UnityConfig, client *httpclient.Client) *UnityFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://monetization.api.unity.com/stats/v1/operate/organizations"
	}
	return &UnityFetcher{cfg: cfg, client: client}
}

func (f *UnityFetcher) Name() schema.Network { return schema.NetworkUnity }

func (f *UnityFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	resp, err := f.client.Do(ctx, httpclient.Request{
		Method: "GET",
		URL:    fmt.Sprintf("%s/%s/reports", f.cfg.BaseURL, f.cfg.OrgCoreID),
		Query: map[string][]string{
			"start":     {fmtDate(window.Start)},
			"end":       {fmtDate(window.End)},
			"groupBy":   {"date,platform,placementType"},
		},
		Headers: map[string][]string{"Authorization": {"Bearer " + f.cfg.APIKey}},
	})
	if err != nil {
		return fetcher.RawBreakdown{}, classifyHTTPFailure("unity", err)
	}

	var decoded struct {
		Rows []rawRow `json:"rows"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fetcher.RawBreakdown{}, shapeError("unity", fmt.Errorf("decode: %w", err))
	}

	acc := fetcher.NewAccumulator(schema.NetworkUnity, window)
	for _, r := range decoded.Rows {
		platform := schema.NormalizePlatform(stringField(r, "platform"))
		adType, ok := schema.NormalizeAdType(stringField(r, "placementType"))
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
