package fetcher

import "mediation-reconciler/internal/schema"

// Accumulator is the reusable helper every adapter builds its
// RawBreakdown through: Accumulate keeps platform and platform×adType
// totals coherent as rows stream in, and Finalize computes eCPM at all
// three levels in a single pass. This mirrors the teacher's
// ingester.Worker — a small stateful helper wrapped around one external
// client's output.
type Accumulator struct {
	network     schema.Network
	rng         DateRange
	overall     Totals
	byPlatform  PlatformTotals
	byPlatAndAd PlatformAdTypeTotals
	daily       map[DailyKey]Totals
}

// NewAccumulator returns an Accumulator for network over window.
func NewAccumulator(network schema.Network, window DateRange) *Accumulator {
	return &Accumulator{
		network:     network,
		rng:         window,
		byPlatform:  make(PlatformTotals),
		byPlatAndAd: make(PlatformAdTypeTotals),
		daily:       make(map[DailyKey]Totals),
	}
}

// Accumulate folds one observation into the running totals at every
// level (overall, platform, platform×adType) and, when date is non-empty,
// into the optional daily breakdown.
func (a *Accumulator) Accumulate(platform schema.Platform, adType schema.AdType, date string, revenue float64, impressions int64) {
	a.overall.Revenue += revenue
	a.overall.Impressions += impressions

	pt := a.byPlatform[platform]
	pt.Revenue += revenue
	pt.Impressions += impressions
	a.byPlatform[platform] = pt

	key := PlatformAdTypeKey{Platform: platform, AdType: adType}
	pat := a.byPlatAndAd[key]
	pat.Revenue += revenue
	pat.Impressions += impressions
	a.byPlatAndAd[key] = pat

	if date != "" {
		dk := DailyKey{Date: date, Platform: platform, AdType: adType}
		dt := a.daily[dk]
		dt.Revenue += revenue
		dt.Impressions += impressions
		a.daily[dk] = dt
	}
}

// Finalize computes eCPM at the overall, per-platform, and
// per-platform×adType levels from accumulated revenue/impressions, and
// returns the completed RawBreakdown.
func (a *Accumulator) Finalize() RawBreakdown {
	a.overall.ECPM = schema.ComputeECPM(a.overall.Revenue, a.overall.Impressions)

	for k, v := range a.byPlatform {
		v.ECPM = schema.ComputeECPM(v.Revenue, v.Impressions)
		a.byPlatform[k] = v
	}
	for k, v := range a.byPlatAndAd {
		v.ECPM = schema.ComputeECPM(v.Revenue, v.Impressions)
		a.byPlatAndAd[k] = v
	}
	for k, v := range a.daily {
		v.ECPM = schema.ComputeECPM(v.Revenue, v.Impressions)
		a.daily[k] = v
	}

	daily := a.daily
	if len(daily) == 0 {
		daily = nil
	}

	return RawBreakdown{
		Network:     a.network,
		Range:       a.rng,
		Overall:     a.overall,
		ByPlatform:  a.byPlatform,
		ByPlatAndAd: a.byPlatAndAd,
		Daily:       daily,
	}
}
