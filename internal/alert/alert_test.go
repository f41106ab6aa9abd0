package alert

import (
	"testing"
	"time"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/reconcile"
	"mediation-reconciler/internal/schema"
)

func window() fetcher.DateRange {
	d := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	return fetcher.DateRange{Start: d, End: d}
}

func pct(v float64) *float64 { return &v }

// E2: floor filter. max_rev=$10 with threshold=10%, floor=$25 — never
// listed as a breach even though its delta would otherwise qualify.
func TestFormatFloorFilterSuppressesBreach(t *testing.T) {
	rows := []reconcile.ComparisonRow{
		{
			Date: "2026-01-08", Network: schema.NetworkUnity, Platform: schema.PlatformIOS,
			AdType: schema.AdTypeRewarded, MaxRevenue: 10, HasNetworkData: true,
			NetworkRevenue: 7, RevDeltaPct: pct(-30),
		},
	}

	payload := New(DefaultConfig()).Format(rows, nil, window(), time.Now())
	if payload.Header != "all-normal" {
		t.Errorf("header = %q, want all-normal", payload.Header)
	}
	if len(payload.Exceeded) != 0 {
		t.Errorf("expected no exceeded networks, got %+v", payload.Exceeded)
	}
	if len(payload.Normal) != 1 {
		t.Fatalf("expected 1 normal network, got %d", len(payload.Normal))
	}
}

func TestFormatThresholdExceededListsBreachAndSortsByRevenue(t *testing.T) {
	rows := []reconcile.ComparisonRow{
		{Date: "2026-01-08", Network: schema.NetworkUnity, MaxRevenue: 100, HasNetworkData: true, NetworkRevenue: 70, RevDeltaPct: pct(-30)},
		{Date: "2026-01-08", Network: schema.NetworkPangle, MaxRevenue: 500, HasNetworkData: true, NetworkRevenue: 350, RevDeltaPct: pct(-30)},
	}

	payload := New(DefaultConfig()).Format(rows, nil, window(), time.Now())
	if payload.Header != "threshold-exceeded" {
		t.Fatalf("header = %q, want threshold-exceeded", payload.Header)
	}
	if len(payload.Exceeded) != 2 {
		t.Fatalf("expected 2 exceeded networks, got %d", len(payload.Exceeded))
	}
	if payload.Exceeded[0].Summary.Network != schema.NetworkPangle {
		t.Errorf("expected pangle (higher revenue) first, got %v", payload.Exceeded[0].Summary.Network)
	}
}

func TestFormatCoverageOverAllRows(t *testing.T) {
	rows := []reconcile.ComparisonRow{
		{Date: "2026-01-08", Network: schema.NetworkUnity, MaxRevenue: 100, HasNetworkData: true, NetworkRevenue: 90},
		{Date: "2026-01-08", Network: schema.NetworkUnity, MaxRevenue: 100, HasNetworkData: false},
	}
	payload := New(DefaultConfig()).Format(rows, nil, window(), time.Now())
	if len(payload.Normal) != 1 {
		t.Fatalf("expected 1 network block, got %d", len(payload.Normal))
	}
	if got := payload.Normal[0].Summary.CoveragePct; got < 49.9 || got > 50.1 {
		t.Errorf("coverage = %v, want ~50", got)
	}
}

func TestFormatAggregateImpDeltaPct(t *testing.T) {
	rows := []reconcile.ComparisonRow{
		{
			Date: "2026-01-08", Network: schema.NetworkUnity, MaxRevenue: 100, HasNetworkData: true,
			NetworkRevenue: 100, MaxImpressions: 10000, NetworkImpressions: 9000,
		},
	}
	payload := New(DefaultConfig()).Format(rows, nil, window(), time.Now())
	if len(payload.Normal) != 1 {
		t.Fatalf("expected 1 network block, got %d", len(payload.Normal))
	}
	got := payload.Normal[0].Summary.AggregateImpDeltaPct
	if got == nil {
		t.Fatalf("expected AggregateImpDeltaPct to be set")
	}
	if *got < -10.1 || *got > -9.9 {
		t.Errorf("aggregate imp_delta_pct = %v, want ~-10", *got)
	}
}

func TestFormatFailedNetworksListed(t *testing.T) {
	failed := map[schema.Network]error{schema.NetworkMoloco: errTest{}}
	payload := New(DefaultConfig()).Format(nil, failed, window(), time.Now())
	if len(payload.Failed) != 1 || payload.Failed[0] != schema.NetworkMoloco {
		t.Errorf("expected moloco listed as failed, got %+v", payload.Failed)
	}
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
