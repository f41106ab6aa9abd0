// InMobi adapter: a login call trades account credentials for a session
// token whose TTL comes from the login response's expires_in (one hour
// when absent), cached through tokencache the same way ironSource's
// bearer token is. The two adapters are grounded on the same teacher
// pattern (webhooks.auth.go) but deliberately not shared into one helper:
// their login payloads and header names differ enough that a shared
// function would need as many parameters as it saved lines.
package networks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
	"mediation-reconciler/internal/tokencache"
)

type InMobiConfig struct {
	AccountID string
	APISecret string
	BaseURL   string
	LoginURL  string
}

type InMobiFetcher struct {
	cfg    InMobiConfig
	client *httpclient.Client
	tokens *tokencache.Cache
}

func NewInMobi(cfg InMobiConfig, client *httpclient.Client, tokens *tokencache.Cache) *InMobiFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.inmobi.com/v2/reporting/stats"
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = "https://api.inmobi.com/v2/auth/token"
	}
	return &InMobiFetcher{cfg: cfg, client: client, tokens: tokens}
}

func (f *InMobiFetcher) Name() schema.Network { return schema.NetworkInMobi }

func (f *InMobiFetcher) sessionToken(ctx context.Context) (string, error) {
	rec, ok, err := f.tokens.Get("inmobi")
	if err != nil {
		return "", fmt.Errorf("inmobi: read cached token: %w", err)
	}
	if ok {
		return rec.Token, nil
	}

	resp, err := f.client.Do(ctx, httpclient.Request{
		Method:  "POST",
		URL:     f.cfg.LoginURL,
		Body:    []byte(fmt.Sprintf(`{"accountId":%q,"secret":%q}`, f.cfg.AccountID, f.cfg.APISecret)),
		Headers: map[string][]string{"Content-Type": {"application/json"}},
	})
	if err != nil {
		return "", authError("inmobi", err)
	}

	var decoded struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return "", authError("inmobi", fmt.Errorf("decode login response: %w", err))
	}
	if decoded.AccessToken == "" {
		return "", authError("inmobi", fmt.Errorf("login response missing access_token"))
	}

	ttl := time.Duration(decoded.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := f.tokens.Put("inmobi", decoded.AccessToken, "bearer", ttl, nil); err != nil {
		return "", fmt.Errorf("inmobi: cache access token: %w", err)
	}
	return decoded.AccessToken, nil
}

func (f *InMobiFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	token, err := f.sessionToken(ctx)
	if err != nil {
		return fetcher.RawBreakdown{}, err
	}

	req := httpclient.Request{
		Method: "GET",
		URL:    f.cfg.BaseURL,
		Query: map[string][]string{
			"from":      {fmtDate(window.Start)},
			"to":        {fmtDate(window.End)},
			"group-by":  {"date,platform,ad-format"},
			"account-id": {f.cfg.AccountID},
		},
		Headers: map[string][]string{"Authorization": {"Bearer " + token}},
	}
	resp, err := f.client.Do(ctx, req)
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusUnauthorized {
		// One refresh attempt: drop the cached token and log in again.
		f.tokens.Delete("inmobi")
		if token, err = f.sessionToken(ctx); err != nil {
			return fetcher.RawBreakdown{}, err
		}
		req.Headers = map[string][]string{"Authorization": {"Bearer " + token}}
		resp, err = f.client.Do(ctx, req)
	}
	if err != nil {
		f.tokens.Delete("inmobi")
		return fetcher.RawBreakdown{}, classifyHTTPFailure("inmobi", err)
	}

	var decoded struct {
		Results []rawRow `json:"results"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fetcher.RawBreakdown{}, shapeError("inmobi", fmt.Errorf("decode: %w", err))
	}

	acc := fetcher.NewAccumulator(schema.NetworkInMobi, window)
	for _, r := range decoded.Results {
		platform := schema.NormalizePlatform(stringField(r, "platform"))
		adType, ok := schema.NormalizeAdType(stringField(r, "ad-format"))
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
