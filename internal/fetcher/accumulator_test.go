package fetcher

import (
	"testing"
	"time"

	"mediation-reconciler/internal/schema"
)

func TestAccumulatorCoherentTotals(t *testing.T) {
	window := DateRange{Start: time.Now(), End: time.Now()}
	acc := NewAccumulator(schema.NetworkUnity, window)

	acc.Accumulate(schema.PlatformIOS, schema.AdTypeRewarded, "2026-01-08", 30, 6000)
	acc.Accumulate(schema.PlatformIOS, schema.AdTypeInterstitial, "2026-01-08", 10, 2000)
	acc.Accumulate(schema.PlatformAndroid, schema.AdTypeBanner, "2026-01-08", 5, 1000)

	raw := acc.Finalize()

	if raw.Overall.Revenue != 45 {
		t.Errorf("overall revenue = %v, want 45", raw.Overall.Revenue)
	}
	if raw.Overall.Impressions != 9000 {
		t.Errorf("overall impressions = %v, want 9000", raw.Overall.Impressions)
	}

	iosTotal := raw.ByPlatform[schema.PlatformIOS]
	if iosTotal.Revenue != 40 || iosTotal.Impressions != 8000 {
		t.Errorf("ios platform totals = %+v", iosTotal)
	}

	// platform totals must equal the sum of platform×adType totals for
	// that platform (invariant in spec.md §3).
	var sumRev float64
	var sumImp int64
	for k, v := range raw.ByPlatAndAd {
		if k.Platform == schema.PlatformIOS {
			sumRev += v.Revenue
			sumImp += v.Impressions
		}
	}
	if sumRev != iosTotal.Revenue || sumImp != iosTotal.Impressions {
		t.Errorf("platform×adType sum (%v,%v) != platform totals (%v,%v)", sumRev, sumImp, iosTotal.Revenue, iosTotal.Impressions)
	}

	if got := raw.Overall.ECPM; got < 4.99 || got > 5.01 {
		t.Errorf("overall ecpm = %v, want ~5.0", got)
	}

	if len(raw.Daily) != 3 {
		t.Errorf("expected 3 daily buckets, got %d", len(raw.Daily))
	}
}

func TestAccumulatorNoDailyIsNil(t *testing.T) {
	acc := NewAccumulator(schema.NetworkMoloco, DateRange{})
	acc.Accumulate(schema.PlatformAndroid, schema.AdTypeBanner, "", 1, 100)
	raw := acc.Finalize()
	if raw.Daily != nil {
		t.Errorf("expected nil Daily when no dated observations were accumulated, got %v", raw.Daily)
	}
}
