// Package reconcile implements C7: the join between a MediatorBreakdown's
// comparison rows and each network's independently-fetched RawBreakdown,
// producing the system's atomic output unit, ComparisonRow. Grounded on
// the teacher's internal/ingester/nft_ownership_reconciler.go — joining
// two independently-sourced views of "truth", tolerating one side being
// partial or absent without failing the whole reconciliation — and
// internal/indexer/indexer.go for the deterministic emission order.
package reconcile

import (
	"time"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/schema"
)

// ComparisonRow is the system's atomic output unit (spec.md §3).
type ComparisonRow struct {
	Date        string
	Network     schema.Network
	Platform    schema.Platform
	AdType      schema.AdType
	Application string

	MaxRevenue     float64
	MaxImpressions int64
	MaxECPM        float64

	NetworkRevenue     float64
	NetworkImpressions int64
	NetworkECPM        float64

	// Nil means the null sentinel, distinct from 0.0 (invariant §3(a)).
	RevDeltaPct  *float64
	ImpDeltaPct  *float64
	ECPMDeltaPct *float64

	HasNetworkData bool
	FetchedAt      time.Time
	HourRange      *string
}

// NetworkResult is one network's fetch outcome for a run: either a
// complete RawBreakdown, or a failure the reconciler must not let stop
// the rest of the run.
type NetworkResult struct {
	Raw fetcher.RawBreakdown
	Err error
}
