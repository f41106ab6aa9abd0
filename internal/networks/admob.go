// AdMob adapter: Google service-account OAuth2, via
// golang.org/x/oauth2/google — the same family of credential the
// teacher's go.mod already carries transitively through
// cloud.google.com/go/storage. The JSON key material is handed to us
// as bytes rather than a file path so config loading stays in one place
// (package config).
package networks

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2/google"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

const admobScope = "https://www.googleapis.com/auth/admob.report"

type AdMobConfig struct {
	ServiceAccountJSON []byte
	PublisherID        string
	BaseURL            string
}

type AdMobFetcher struct {
	cfg    AdMobConfig
	client *httpclient.Client
}

func NewAdMob(cfg AdMobConfig, client *httpclient.Client) *AdMobFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://admob.googleapis.com/v1/accounts"
	}
	return &AdMobFetcher{cfg: cfg, client: client}
}

func (f *AdMobFetcher) Name() schema.Network { return schema.NetworkAdMob }

func (f *AdMobFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	jwtCfg, err := google.JWTConfigFromJSON(f.cfg.ServiceAccountJSON, admobScope)
	if err != nil {
		return fetcher.RawBreakdown{}, authError("admob", fmt.Errorf("parse service account: %w", err))
	}
	tok, err := jwtCfg.TokenSource(ctx).Token()
	if err != nil {
		return fetcher.RawBreakdown{}, authError("admob", err)
	}

	reqBody := fmt.Sprintf(`{
		"reportSpec": {
			"dateRange": {"startDate": %s, "endDate": %s},
			"dimensions": ["DATE", "PLATFORM", "FORMAT"],
			"metrics": ["ESTIMATED_EARNINGS", "IMPRESSIONS"]
		}
	}`, isoDateJSON(window.Start), isoDateJSON(window.End))

	resp, err := f.client.Do(ctx, httpclient.Request{
		Method: "POST",
		URL:    fmt.Sprintf("%s/%s/networkReport:generate", f.cfg.BaseURL, f.cfg.PublisherID),
		Body:   []byte(reqBody),
		Headers: map[string][]string{
			"Authorization": {tok.Type() + " " + tok.AccessToken},
			"Content-Type":  {"application/json"},
		},
	})
	if err != nil {
		return fetcher.RawBreakdown{}, classifyHTTPFailure("admob", err)
	}

	// AdMob returns one JSON array of objects, each wrapping a header, a
	// row or a footer; we only care about rows.
	var lines []struct {
		Row *struct {
			DimensionValues map[string]struct {
				Value string `json:"value"`
			} `json:"dimensionValues"`
			MetricValues map[string]struct {
				MicrosValue string `json:"microsValue"`
				IntegerValue string `json:"integerValue"`
			} `json:"metricValues"`
		} `json:"row"`
	}
	if err := json.Unmarshal(resp.Body, &lines); err != nil {
		return fetcher.RawBreakdown{}, shapeError("admob", fmt.Errorf("decode: %w", err))
	}

	acc := fetcher.NewAccumulator(schema.NetworkAdMob, window)
	for _, l := range lines {
		if l.Row == nil {
			continue
		}
		platform := schema.NormalizePlatform(l.Row.DimensionValues["PLATFORM"].Value)
		adType, ok := schema.NormalizeAdType(l.Row.DimensionValues["FORMAT"].Value)
		if !ok {
			continue
		}
		date := l.Row.DimensionValues["DATE"].Value
		revenueMicros, _ := schema.CoerceNumber(l.Row.MetricValues["ESTIMATED_EARNINGS"].MicrosValue)
		impressions, _ := schema.CoerceNumber(l.Row.MetricValues["IMPRESSIONS"].IntegerValue)
		acc.Accumulate(platform, adType, date, revenueMicros/1_000_000, int64(impressions))
	}
	return acc.Finalize(), nil
}

func isoDateJSON(t interface{ Format(string) string }) string {
	return fmt.Sprintf(`{"year": %s, "month": %s, "day": %s}`, t.Format("2006"), t.Format("1"), t.Format("2"))
}
