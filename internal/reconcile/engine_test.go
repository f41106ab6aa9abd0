package reconcile

import (
	"errors"
	"testing"
	"time"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/mediator"
	"mediation-reconciler/internal/schema"
)

func testWindow() fetcher.DateRange {
	d := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	return fetcher.DateRange{Start: d, End: d}
}

// E1: one application, one platform, one network, one day.
func TestReconcileE1MatchedRow(t *testing.T) {
	bd := mediator.Breakdown{
		Rows: []mediator.Row{
			{
				Application:    "MyApp (iOS)",
				Platform:       schema.PlatformIOS,
				Network:        schema.NetworkUnity,
				AdType:         schema.AdTypeRewarded,
				Date:           "2026-01-08",
				MaxImpressions: 10000,
				MaxRevenue:     50.00,
				MaxECPM:        5.00,
			},
		},
	}

	acc := fetcher.NewAccumulator(schema.NetworkUnity, testWindow())
	acc.Accumulate(schema.PlatformIOS, schema.AdTypeRewarded, "2026-01-08", 48.50, 9800)
	raw := acc.Finalize()

	results := map[schema.Network]NetworkResult{schema.NetworkUnity: {Raw: raw}}
	summary := NewRunSummary(testWindow())

	rows := New().Reconcile(bd, results, testWindow(), time.Now(), summary)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if !r.HasNetworkData {
		t.Fatalf("expected has_network_data=true")
	}
	if r.RevDeltaPct == nil || !closeTo(*r.RevDeltaPct, -3.00, 0.01) {
		t.Errorf("rev_delta_pct = %v, want -3.00", deref(r.RevDeltaPct))
	}
	if r.ImpDeltaPct == nil || !closeTo(*r.ImpDeltaPct, -2.00, 0.01) {
		t.Errorf("imp_delta_pct = %v, want -2.00", deref(r.ImpDeltaPct))
	}
	if r.ECPMDeltaPct == nil || !closeTo(*r.ECPMDeltaPct, -1.02, 0.05) {
		t.Errorf("ecpm_delta_pct = %v, want ~-1.02", deref(r.ECPMDeltaPct))
	}
}

// E3: mediator has a row for a network that returns no data for that
// (platform, adType, date).
func TestReconcileE3MissingNetworkData(t *testing.T) {
	bd := mediator.Breakdown{
		Rows: []mediator.Row{
			{
				Application:    "MyApp (iOS)",
				Platform:       schema.PlatformIOS,
				Network:        schema.NetworkPangle,
				AdType:         schema.AdTypeInterstitial,
				Date:           "2026-01-08",
				MaxImpressions: 500,
				MaxRevenue:     5.0,
			},
		},
	}

	raw := fetcher.NewAccumulator(schema.NetworkPangle, testWindow()).Finalize()
	results := map[schema.Network]NetworkResult{schema.NetworkPangle: {Raw: raw}}
	summary := NewRunSummary(testWindow())

	rows := New().Reconcile(bd, results, testWindow(), time.Now(), summary)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.HasNetworkData {
		t.Errorf("expected has_network_data=false")
	}
	if r.NetworkRevenue != 0 || r.NetworkImpressions != 0 || r.NetworkECPM != 0 {
		t.Errorf("expected zero network_* fields, got %+v", r)
	}
	if r.RevDeltaPct != nil || r.ImpDeltaPct != nil || r.ECPMDeltaPct != nil {
		t.Errorf("expected null deltas, got %+v", r)
	}
}

// A failed network leaves its rows marked has_network_data=false and is
// recorded in the run summary, but the run continues (spec.md §4.7
// failure semantics).
func TestReconcileFailedNetworkRecordedNotFatal(t *testing.T) {
	bd := mediator.Breakdown{
		Rows: []mediator.Row{
			{Application: "A", Platform: schema.PlatformAndroid, Network: schema.NetworkMoloco, AdType: schema.AdTypeBanner, Date: "2026-01-08", MaxRevenue: 10},
		},
	}
	results := map[schema.Network]NetworkResult{
		schema.NetworkMoloco: {Err: errors.New("boom")},
	}
	summary := NewRunSummary(testWindow())

	rows := New().Reconcile(bd, results, testWindow(), time.Now(), summary)
	if len(rows) != 1 || rows[0].HasNetworkData {
		t.Fatalf("expected 1 row with has_network_data=false, got %+v", rows)
	}
	if _, ok := summary.FailedNetworks[schema.NetworkMoloco]; !ok {
		t.Errorf("expected moloco recorded in FailedNetworks")
	}
}

// Duplicate mediator rows on the same key are summed, not emitted twice.
func TestReconcileMergesDuplicateMediatorRows(t *testing.T) {
	bd := mediator.Breakdown{
		Rows: []mediator.Row{
			{Application: "A", Platform: schema.PlatformAndroid, Network: schema.NetworkUnity, AdType: schema.AdTypeBanner, Date: "2026-01-08", MaxRevenue: 10, MaxImpressions: 1000},
			{Application: "A", Platform: schema.PlatformAndroid, Network: schema.NetworkUnity, AdType: schema.AdTypeBanner, Date: "2026-01-08", MaxRevenue: 5, MaxImpressions: 500},
		},
	}
	summary := NewRunSummary(testWindow())
	rows := New().Reconcile(bd, nil, testWindow(), time.Now(), summary)
	if len(rows) != 1 {
		t.Fatalf("expected duplicate rows merged into 1, got %d", len(rows))
	}
	if rows[0].MaxRevenue != 15 || rows[0].MaxImpressions != 1500 {
		t.Errorf("expected merged totals (15, 1500), got (%v, %v)", rows[0].MaxRevenue, rows[0].MaxImpressions)
	}
}

func closeTo(got, want, tol float64) bool {
	d := got - want
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
