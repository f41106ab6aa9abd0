// Package mediator implements C6: the AppLovin MAX fetcher. Unlike a
// per-network adapter (package networks) it has two responsibilities —
// produce aggregate totals shaped like any C5 output, and produce the
// per-(application, platform, network, adType, date) comparison rows the
// reconciliation engine joins against. Grounded on the teacher's
// market.FetchFlowPrice / market.FetchDailyPriceHistory (plain HTTP+JSON
// fetch against a documented third-party API, context-scoped, no retry
// framework of its own — retry is httpclient's job) and on
// ingester.nft_ownership_reconciler's "drop what can't be resolved, count
// it, keep going" posture for the network-name resolution step.
package mediator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

// Row is one MAX-side comparison row: the mediator's own view of a single
// (application, platform, network, adType, date) cell.
type Row struct {
	Application    string
	Platform       schema.Platform
	Network        schema.Network
	AdType         schema.AdType
	Date           string // YYYY-MM-DD
	MaxImpressions int64
	MaxRevenue     float64
	MaxECPM        float64
}

// Breakdown is the AppLovin MAX fetch result: aggregate totals shaped
// like any RawBreakdown, plus the comparison rows the reconciler joins.
type Breakdown struct {
	fetcher.RawBreakdown
	Rows       []Row
	Unresolved int // rows whose raw network label didn't resolve via schema
}

// columnSet is one AppLovin report column-variant to try, most
// informative first (spec.md §4.6 "column-set negotiation").
type columnSet struct {
	name    string
	columns []string
}

var columnSets = []columnSet{
	{
		name: "full",
		columns: []string{
			"application", "platform", "network", "ad_type", "day",
			"impressions", "estimated_revenue", "ecpm",
		},
	},
	{
		name:    "basic",
		columns: []string{"application", "platform", "network", "ad_format", "day", "impressions", "revenue"},
	},
	{
		name:    "minimal",
		columns: []string{"network", "ad_type", "day", "impressions", "revenue"},
	},
}

// Config holds the AppLovin account credentials this fetcher needs.
type Config struct {
	APIKey       string
	Applications []string // optional filter; empty means all
	PackageName  string
	BaseURL      string // defaults to the production MAX reporting endpoint
}

// Fetcher implements the AppLovin MAX side of the pipeline.
type Fetcher struct {
	cfg    Config
	client *httpclient.Client
}

func New(cfg Config, client *httpclient.Client) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://r.applovin.com/max/userAdRevenueReport"
	}
	return &Fetcher{cfg: cfg, client: client}
}

func (f *Fetcher) Name() schema.Network { return schema.NetworkAppLovin }

// FetchMediator retrieves the AppLovin network-breakdown report for
// window, trying column variants in preference order and accepting the
// first non-empty payload.
func (f *Fetcher) FetchMediator(ctx context.Context, window fetcher.DateRange) (Breakdown, error) {
	var lastErr error
	for _, cs := range columnSets {
		raw, err := f.fetchColumnSet(ctx, window, cs)
		if err != nil {
			lastErr = err
			continue
		}
		if len(raw) > 0 {
			return f.buildBreakdown(window, raw)
		}
	}
	if lastErr != nil {
		return Breakdown{}, &fetcher.TransportError{Network: "applovin", Cause: lastErr}
	}
	// Every variant returned an empty payload: valid (no rows), not an error.
	return f.buildBreakdown(window, nil)
}

type rawRow map[string]any

func (f *Fetcher) fetchColumnSet(ctx context.Context, window fetcher.DateRange, cs columnSet) ([]rawRow, error) {
	resp, err := f.client.Do(ctx, httpclient.Request{
		Method: "GET",
		URL:    f.cfg.BaseURL,
		Query: map[string][]string{
			"api_key":   {f.cfg.APIKey},
			"start":     {window.Start.Format("2006-01-02")},
			"end":       {window.End.Format("2006-01-02")},
			"columns":   {joinColumns(cs.columns)},
			"package":   {f.cfg.PackageName},
			"format":    {"json"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("applovin %s column set: %w", cs.name, err)
	}

	var decoded struct {
		Results []rawRow `json:"results"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, &fetcher.ResponseShapeError{Network: "applovin", Cause: err}
	}
	return decoded.Results, nil
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ","
		}
		out += c
	}
	return out
}

func (f *Fetcher) buildBreakdown(window fetcher.DateRange, rows []rawRow) (Breakdown, error) {
	acc := fetcher.NewAccumulator(schema.NetworkAppLovin, window)
	var comparisonRows []Row
	unresolved := 0

	for _, r := range rows {
		app, _ := r["application"].(string)
		platform := schema.NormalizePlatform(stringField(r, "platform"))

		adType, ok := resolveAdType(r)
		if !ok {
			continue
		}

		date := firstNonEmpty(stringField(r, "day"), stringField(r, "date"))
		impressions, _ := schema.CoerceNumber(r["impressions"])
		revenue, _ := schema.CoerceNumber(firstNonNil(r["estimated_revenue"], r["revenue"]))
		ecpm, ecpmOK := schema.CoerceNumber(r["ecpm"])
		if !ecpmOK {
			ecpm = schema.ComputeECPM(revenue, int64(impressions))
		}

		// Aggregate totals reflect MAX's own revenue regardless of whether
		// the row's network label resolves; only the comparison rows used
		// for joining require a resolvable Network.
		acc.Accumulate(platform, adType, date, revenue, int64(impressions))

		networkLabel := firstNonEmpty(stringField(r, "network"), stringField(r, "ad_network"))
		net, ok := schema.ResolveNetwork(networkLabel)
		if !ok {
			unresolved++
			log.Printf("[mediator] dropping row: unresolved network label %q", networkLabel)
			continue
		}

		comparisonRows = append(comparisonRows, Row{
			Application:    app,
			Platform:       platform,
			Network:        net,
			AdType:         adType,
			Date:           date,
			MaxImpressions: int64(impressions),
			MaxRevenue:     revenue,
			MaxECPM:        ecpm,
		})
	}

	return Breakdown{
		RawBreakdown: acc.Finalize(),
		Rows:         comparisonRows,
		Unresolved:   unresolved,
	}, nil
}

func resolveAdType(r rawRow) (schema.AdType, bool) {
	raw := firstNonEmpty(stringField(r, "ad_type"), stringField(r, "ad_format"))
	if raw == "video" {
		incentivized, _ := r["incentivized"].(bool)
		return schema.NormalizeVideoLabel(incentivized), true
	}
	return schema.NormalizeAdType(raw)
}

func stringField(r rawRow, key string) string {
	s, _ := r[key].(string)
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
