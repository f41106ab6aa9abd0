package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediation-reconciler/internal/alert"
	"mediation-reconciler/internal/export"
	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/mediator"
	"mediation-reconciler/internal/reconcile"
	"mediation-reconciler/internal/schema"
)

type stubNetworkFetcher struct {
	name schema.Network
	raw  fetcher.RawBreakdown
	err  error
}

func (s stubNetworkFetcher) Name() schema.Network { return s.name }
func (s stubNetworkFetcher) Fetch(ctx context.Context, window fetcher.DateRange) (fetcher.RawBreakdown, error) {
	return s.raw, s.err
}

func TestRunOnceHappyPath(t *testing.T) {
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
			},
		})
	}))
	defer srv.Close()

	window := fetcher.DateRange{Start: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)}

	acc := fetcher.NewAccumulator(schema.NetworkUnity, window)
	acc.Accumulate(schema.PlatformIOS, schema.AdTypeRewarded, "2026-01-08", 48.5, 9800)

	o := &Orchestrator{
		Mediator: mediator.New(mediator.Config{APIKey: "k", BaseURL: srv.URL}, httpclient.New()),
		Networks: map[schema.Network]fetcher.Fetcher{
			schema.NetworkUnity: stubNetworkFetcher{name: schema.NetworkUnity, raw: acc.Finalize()},
		},
		Engine:   reconcile.New(),
		Exporter: export.NewWriter(export.NewLocalTarget(t.TempDir()), "network_data"),
		Alerter:  alert.New(alert.DefaultConfig()),
	}

	result, err := o.RunOnce(context.Background(), window, Options{}, time.Now())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if result.Summary.State != reconcile.StateDone {
		t.Errorf("final state = %v, want done", result.Summary.State)
	}
	if len(result.Rows) != 1 || !result.Rows[0].HasNetworkData {
		t.Fatalf("unexpected rows: %+v", result.Rows)
	}
	if result.Payload == nil {
		t.Fatalf("expected a payload")
	}
}

func TestRunOnceMediatorFailureIsFatalAndWritesNoPartition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	window := fetcher.DateRange{Start: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)}
	exportDir := t.TempDir()

	o := &Orchestrator{
		Mediator: mediator.New(mediator.Config{APIKey: "k", BaseURL: srv.URL}, httpclient.New(httpclient.WithMaxAttempts(1))),
		Networks: map[schema.Network]fetcher.Fetcher{},
		Engine:   reconcile.New(),
		Exporter: export.NewWriter(export.NewLocalTarget(exportDir), "network_data"),
		Alerter:  alert.New(alert.DefaultConfig()),
	}

	_, err := o.RunOnce(context.Background(), window, Options{}, time.Now())
	if err == nil {
		t.Fatalf("expected mediator failure to be fatal")
	}

	if _, statErr := os.Stat(filepath.Join(exportDir, "network_data")); !os.IsNotExist(statErr) {
		t.Errorf("expected no partition written on mediator failure")
	}
}
