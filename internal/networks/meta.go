// Meta Audience Network adapter: static long-lived access token,
// Graph-API-style insights endpoint. The token travels as an
// access_token query parameter rather than a bearer header, and the rows
// sit under a top-level "data" key.
package networks

import (
	"context"
	"encoding/json"
	"fmt"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

type MetaConfig struct {
	AccessToken string
	AccountID   string
	BaseURL     string
}

type MetaFetcher struct {
	cfg    MetaConfig
	client *httpclient.Client
}

func NewMeta(cfg MetaConfig, client *httpclient.Client) *MetaFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com/v19.0"
	}
	return &MetaFetcher{cfg: cfg, client: client}
}

func (f *MetaFetcher) Name() schema.Network { return schema.NetworkMeta }

func (f *MetaFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	resp, err := f.client.Do(ctx, httpclient.Request{
		Method: "GET",
		URL:    fmt.Sprintf("%s/%s/adnetworkanalytics", f.cfg.BaseURL, f.cfg.AccountID),
		Query: map[string][]string{
			"access_token": {f.cfg.AccessToken},
			"since":        {fmtDate(window.Start)},
			"until":        {fmtDate(window.End)},
			"breakdowns":   {"platform,ad_type,fb_skan_campaign_day"},
			"metrics":      {"fb_ad_network_revenue,fb_ad_network_imp"},
		},
	})
	if err != nil {
		return fetcher.RawBreakdown{}, classifyHTTPFailure("meta", err)
	}

	var decoded struct {
		Data []rawRow `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fetcher.RawBreakdown{}, shapeError("meta", fmt.Errorf("decode: %w", err))
	}

	acc := fetcher.NewAccumulator(schema.NetworkMeta, window)
	for _, r := range decoded.Data {
		platform := schema.NormalizePlatform(stringField(r, "platform"))
		adType, ok := schema.NormalizeAdType(stringField(r, "ad_type"))
		if !ok {
			continue
		}
		date := firstNonEmpty(stringField(r, "fb_skan_campaign_day"), stringField(r, "date"))
		revenue, _ := schema.CoerceNumber(r["fb_ad_network_revenue"])
		impressions, _ := schema.CoerceNumber(r["fb_ad_network_imp"])
		acc.Accumulate(platform, adType, date, revenue, int64(impressions))
	}
	return acc.Finalize(), nil
}
