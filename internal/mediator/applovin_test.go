package mediator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/schema"
)

func window() fetcher.DateRange {
	start := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	return fetcher.DateRange{Start: start, End: start}
}

func TestFetchMediatorTriesEveryColumnSetWhenAllEmpty(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		cols := r.URL.Query().Get("columns")
		if cols != joinColumns(columnSets[0].columns) {
			// Every variant, first or later, returns an empty payload.
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	}))
	defer srv.Close()

	f := New(Config{APIKey: "k", BaseURL: srv.URL}, httpclient.New())
	bd, err := f.FetchMediator(context.Background(), window())
	if err != nil {
		t.Fatalf("FetchMediator: %v", err)
	}
	if len(bd.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(bd.Rows))
	}
	if calls != len(columnSets) {
		t.Errorf("expected all %d column sets tried on empty payloads, got %d calls", len(columnSets), calls)
	}
}

func TestFetchMediatorParsesRowsAndResolvesNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{
					"application":       "MyApp (iOS)",
					"platform":          "ios",
					"network":           "Unity",
					"ad_type":           "rewarded",
					"day":               "2026-01-08",
					"impressions":       10000,
					"estimated_revenue": 50.0,
					"ecpm":              5.0,
				},
				{
					"application": "MyApp (iOS)",
					"platform":    "ios",
					"network":     "TotallyUnknownNetwork",
					"ad_type":     "banner",
					"day":         "2026-01-08",
					"impressions": 100,
					"revenue":     1.0,
				},
			},
		})
	}))
	defer srv.Close()

	f := New(Config{APIKey: "k", BaseURL: srv.URL}, httpclient.New())
	bd, err := f.FetchMediator(context.Background(), window())
	if err != nil {
		t.Fatalf("FetchMediator: %v", err)
	}
	if len(bd.Rows) != 1 {
		t.Fatalf("expected 1 resolved row, got %d", len(bd.Rows))
	}
	row := bd.Rows[0]
	if row.Network != schema.NetworkUnity || row.Platform != schema.PlatformIOS || row.AdType != schema.AdTypeRewarded {
		t.Errorf("unexpected row: %+v", row)
	}
	if bd.Unresolved != 1 {
		t.Errorf("expected 1 unresolved row counted, got %d", bd.Unresolved)
	}
	if bd.Overall.Revenue != 51.0 {
		t.Errorf("overall revenue = %v, want 51.0 (aggregate totals include rows dropped from comparison rows for unresolved network)", bd.Overall.Revenue)
	}
}
