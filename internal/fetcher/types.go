// Package fetcher defines C4: the base fetcher contract every per-network
// adapter and the mediator fetcher implement, plus the accumulation
// helpers that keep platform/ad-type totals internally consistent. The
// Worker-around-one-client shape is modeled on the teacher's
// ingester.Worker (internal/ingester/worker.go in the retrieval pack).
package fetcher

import (
	"context"
	"time"

	"mediation-reconciler/internal/schema"
)

// DateRange is an inclusive [Start, End] window in UTC calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Totals is revenue/impressions/eCPM at some level of aggregation.
type Totals struct {
	Revenue     float64
	Impressions int64
	ECPM        float64
}

// PlatformTotals keys Totals by Platform.
type PlatformTotals map[schema.Platform]Totals

// PlatformAdTypeTotals keys Totals by (Platform, AdType).
type PlatformAdTypeKey struct {
	Platform schema.Platform
	AdType   schema.AdType
}

type PlatformAdTypeTotals map[PlatformAdTypeKey]Totals

// DailyKey indexes a single day's per-platform-per-adtype totals.
type DailyKey struct {
	Date     string // YYYY-MM-DD
	Platform schema.Platform
	AdType   schema.AdType
}

// RawBreakdown is what a single fetcher produces for one reporting window.
// Invariant (spec.md §3): platform totals sum to the platform×adType
// totals for the same platform (within 0.01 rounding); overall totals sum
// to the platform totals.
type RawBreakdown struct {
	Network     schema.Network
	Range       DateRange
	Overall     Totals
	ByPlatform  PlatformTotals
	ByPlatAndAd PlatformAdTypeTotals
	// Daily is optional: mapping date -> (platform, adType) -> {revenue,
	// impressions}. Present when the network's API exposes a daily
	// breakdown; used by the reconciliation engine to discover
	// last-available-date.
	Daily map[DailyKey]Totals
}

// Fetcher is the contract every per-network adapter and the mediator
// fetcher implement (spec.md §4.4).
type Fetcher interface {
	Name() schema.Network
	Fetch(ctx context.Context, window DateRange) (RawBreakdown, error)
}
