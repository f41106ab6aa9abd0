// Chartboost adapter: OAuth2 client-credentials grant via
// golang.org/x/oauth2/clientcredentials, the same package dtexchange.go
// uses — Chartboost's real auth endpoint
// (https://api.chartboost.com/v5/oauth/token) is a standard
// client_credentials grant, not a user/signature login call, per
// original_source/src/fetchers/chartboost_fetcher.py. The only
// Chartboost-specific wrinkle is the required "audience" endpoint
// parameter, passed through clientcredentials.Config.EndpointParams.
//
// The report response carries an app ID, not a platform, per row;
// original_source resolves that through a caller-supplied app->platform
// map (with unmapped apps falling back to schema.NormalizePlatform's
// default), which this adapter reproduces via AppPlatformMap.
package networks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"golang.org/x/oauth2/clientcredentials"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

const chartboostAudience = "https://public.api.gateway.chartboost.com"

type ChartboostConfig struct {
	ClientID       string
	ClientSecret   string
	BaseURL        string
	TokenURL       string
	AppPlatformMap map[string]string // app ID -> "android"/"ios"
}

type ChartboostFetcher struct {
	cfg    ChartboostConfig
	client *httpclient.Client
	oauth  *clientcredentials.Config
}

func NewChartboost(cfg ChartboostConfig, client *httpclient.Client) *ChartboostFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://helium-api.chartboost.com/v2/publisher/metrics"
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://api.chartboost.com/v5/oauth/token"
	}
	return &ChartboostFetcher{
		cfg:    cfg,
		client: client,
		oauth: &clientcredentials.Config{
			ClientID:       cfg.ClientID,
			ClientSecret:   cfg.ClientSecret,
			TokenURL:       cfg.TokenURL,
			EndpointParams: url.Values{"audience": {chartboostAudience}},
		},
	}
}

func (f *ChartboostFetcher) Name() schema.Network { return schema.NetworkChartboost }

func (f *ChartboostFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	tok, err := f.oauth.Token(ctx)
	if err != nil {
		return fetcher.RawBreakdown{}, authError("chartboost", err)
	}

	body, err := json.Marshal(map[string]any{
		"date_min":   fmtDate(window.Start),
		"date_max":   fmtDate(window.End),
		"dimensions": []string{"date", "app", "placement_type"},
		"metrics":    []string{"requests", "impressions", "estimated_earnings", "ecpm"},
	})
	if err != nil {
		return fetcher.RawBreakdown{}, fmt.Errorf("chartboost: encode report request: %w", err)
	}

	resp, err := f.client.Do(ctx, httpclient.Request{
		Method:  "POST",
		URL:     f.cfg.BaseURL,
		Body:    body,
		Headers: map[string][]string{"Authorization": {tok.Type() + " " + tok.AccessToken}, "Content-Type": {"application/json"}},
	})
	if err != nil {
		return fetcher.RawBreakdown{}, classifyHTTPFailure("chartboost", err)
	}

	var decoded struct {
		Data []rawRow `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fetcher.RawBreakdown{}, shapeError("chartboost", fmt.Errorf("decode: %w", err))
	}

	acc := fetcher.NewAccumulator(schema.NetworkChartboost, window)
	for _, r := range decoded.Data {
		platform := schema.NormalizePlatform(f.cfg.AppPlatformMap[stringField(r, "app")])
		adType, ok := schema.NormalizeAdType(stringField(r, "placement_type"))
		if !ok {
			continue
		}
		date := stringField(r, "date")
		revenue, _ := schema.CoerceNumber(r["estimated_earnings"])
		impressions, _ := schema.CoerceNumber(r["impressions"])
		acc.Accumulate(platform, adType, date, revenue, int64(impressions))
	}
	return acc.Finalize(), nil
}
