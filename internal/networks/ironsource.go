// ironSource adapter: the auth endpoint issues a signed JWT bearer
// token. Rather than trust a declared expires_in, this adapter parses
// the token's own exp claim with golang-jwt/jwt (unverified — we didn't
// mint it, we only need the expiry) so the cached TTL can never drift
// from what the token itself says. Grounded on the teacher's
// webhooks.auth.go, which already depends on golang-jwt/jwt/v5 for its
// own signing; here we're on the parsing side instead.
package networks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
	"mediation-reconciler/internal/tokencache"
)

type IronSourceConfig struct {
	SecretKey string
	RefreshToken string
	BaseURL   string
	LoginURL  string
}

type IronSourceFetcher struct {
	cfg    IronSourceConfig
	client *httpclient.Client
	tokens *tokencache.Cache
}

func NewIronSource(cfg IronSourceConfig, client *httpclient.Client, tokens *tokencache.Cache) *IronSourceFetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://platform.ironsrc.com/partners/publisher/mediation/applications/v6/stats"
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = "https://platform.ironsrc.com/partners/publisher/auth"
	}
	return &IronSourceFetcher{cfg: cfg, client: client, tokens: tokens}
}

func (f *IronSourceFetcher) Name() schema.Network { return schema.NetworkIronSource }

func (f *IronSourceFetcher) bearerToken(ctx context.Context) (string, error) {
	rec, ok, err := f.tokens.Get("ironsource")
	if err != nil {
		return "", fmt.Errorf("ironsource: read cached token: %w", err)
	}
	if ok {
		return rec.Token, nil
	}

	resp, err := f.client.Do(ctx, httpclient.Request{
		Method: "GET",
		URL:    f.cfg.LoginURL,
		Headers: map[string][]string{
			"secretkey":    {f.cfg.SecretKey},
			"refreshToken": {f.cfg.RefreshToken},
		},
	})
	if err != nil {
		return "", authError("ironsource", err)
	}

	var raw string
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return "", authError("ironsource", fmt.Errorf("decode login response: %w", err))
	}

	ttl := time.Hour
	if claims, _, err := new(jwt.Parser).ParseUnverified(raw, jwt.MapClaims{}); err == nil {
		if mc, ok := claims.Claims.(jwt.MapClaims); ok {
			if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
				if d := time.Until(exp.Time); d > 0 {
					ttl = d
				}
			}
		}
	}

	if err := f.tokens.Put("ironsource", raw, "bearer", ttl, nil); err != nil {
		return "", fmt.Errorf("ironsource: cache bearer token: %w", err)
	}
	return raw, nil
}

func (f *IronSourceFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	token, err := f.bearerToken(ctx)
	if err != nil {
		return fetcher.RawBreakdown{}, err
	}

	req := httpclient.Request{
		Method: "GET",
		URL:    f.cfg.BaseURL,
		Query: map[string][]string{
			"startDate": {fmtDate(window.Start)},
			"endDate":   {fmtDate(window.End)},
			"metrics":   {"revenue,impressions"},
			"breakdown": {"date,platform,adUnits"},
		},
		Headers: map[string][]string{"Authorization": {"Bearer " + token}},
	}
	resp, err := f.client.Do(ctx, req)
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusUnauthorized {
		// One refresh attempt: drop the cached token and fetch a new one.
		f.tokens.Delete("ironsource")
		if token, err = f.bearerToken(ctx); err != nil {
			return fetcher.RawBreakdown{}, err
		}
		req.Headers = map[string][]string{"Authorization": {"Bearer " + token}}
		resp, err = f.client.Do(ctx, req)
	}
	if err != nil {
		f.tokens.Delete("ironsource")
		return fetcher.RawBreakdown{}, classifyHTTPFailure("ironsource", err)
	}

	var rows []rawRow
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return fetcher.RawBreakdown{}, shapeError("ironsource", fmt.Errorf("decode: %w", err))
	}

	acc := fetcher.NewAccumulator(schema.NetworkIronSource, window)
	for _, r := range rows {
		platform := schema.NormalizePlatform(stringField(r, "platform"))
		adType, ok := schema.NormalizeAdType(stringField(r, "adUnits"))
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
