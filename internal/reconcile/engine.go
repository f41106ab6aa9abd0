package reconcile

import (
	"sort"
	"time"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/mediator"
	"mediation-reconciler/internal/schema"
)

// Engine runs the join/delta/last-available-date algorithm (spec.md
// §4.7) against one run's mediator and network results.
type Engine struct{}

func New() *Engine { return &Engine{} }

// Reconcile joins mediatorBD's comparison rows against networkResults and
// returns the deterministically-ordered ComparisonRows for window. It
// advances summary to reconciling and records failed networks, the
// unresolved mediator row count and the row count on it.
func (e *Engine) Reconcile(mediatorBD mediator.Breakdown, networkResults map[schema.Network]NetworkResult, window fetcher.DateRange, now time.Time, summary *RunSummary) []ComparisonRow {
	summary.Advance(StateReconciling, now)
	summary.UnresolvedMediatorRows += mediatorBD.Unresolved

	lastAvailable := make(map[schema.Network]string, len(networkResults))
	for net, res := range networkResults {
		if res.Err != nil {
			summary.FailedNetworks[net] = res.Err
			continue
		}
		lastAvailable[net] = lastAvailableDate(net, res.Raw, window)
	}

	endDate := window.End.Format("2006-01-02")
	rows := make([]ComparisonRow, 0, len(mediatorBD.Rows))

	for _, row := range mergeMediatorRows(mediatorBD.Rows) {
		cr := ComparisonRow{
			Date:           row.Date,
			Network:        row.Network,
			Platform:       row.Platform,
			AdType:         row.AdType,
			Application:    row.Application,
			MaxRevenue:     row.MaxRevenue,
			MaxImpressions: row.MaxImpressions,
			MaxECPM:        row.MaxECPM,
			FetchedAt:      now,
		}

		res, attempted := networkResults[row.Network]
		if !attempted || res.Err != nil {
			rows = append(rows, cr)
			continue
		}

		// An end-date row with no network data for its own date falls back
		// to the network's last_available_date.
		key := fetcher.DailyKey{Date: row.Date, Platform: row.Platform, AdType: row.AdType}
		totals, ok := res.Raw.Daily[key]
		if !ok && row.Date == endDate {
			if la, laOK := lastAvailable[row.Network]; laOK && la != "" {
				key.Date = la
				totals, ok = res.Raw.Daily[key]
			}
		}
		if !ok {
			rows = append(rows, cr)
			continue
		}

		cr.HasNetworkData = true
		cr.NetworkRevenue = totals.Revenue
		cr.NetworkImpressions = totals.Impressions
		cr.NetworkECPM = totals.ECPM

		if v, ok := schema.DeltaPct(cr.MaxRevenue, cr.NetworkRevenue); ok {
			cr.RevDeltaPct = &v
		}
		if v, ok := schema.DeltaPct(float64(cr.MaxImpressions), float64(cr.NetworkImpressions)); ok {
			cr.ImpDeltaPct = &v
		}
		if v, ok := schema.DeltaPct(cr.MaxECPM, cr.NetworkECPM); ok {
			cr.ECPMDeltaPct = &v
		}

		rows = append(rows, cr)
	}

	sortRows(rows)
	summary.RowCount = len(rows)
	return rows
}

// lastAvailableDate implements step 1 of the algorithm: the latest day
// with non-zero impressions in raw.Daily, capped at end-delay(network);
// falling back to end-delay directly when no daily breakdown exists.
func lastAvailableDate(net schema.Network, raw fetcher.RawBreakdown, window fetcher.DateRange) string {
	ceiling := window.End.AddDate(0, 0, -net.Info().ReportingDelay).Format("2006-01-02")

	best := ""
	for k, totals := range raw.Daily {
		if totals.Impressions <= 0 {
			continue
		}
		if k.Date > best {
			best = k.Date
		}
	}
	if best == "" || best > ceiling {
		return ceiling
	}
	return best
}

// mergeMediatorRows implements step 5's tie-break on the mediator side:
// duplicate (date, network, platform, adType, application) rows from the
// same source are summed and their eCPM recomputed, rather than emitted
// as separate ComparisonRows.
func mergeMediatorRows(in []mediator.Row) []mediator.Row {
	type key struct {
		date, app string
		network   schema.Network
		platform  schema.Platform
		adType    schema.AdType
	}
	order := make([]key, 0, len(in))
	merged := make(map[key]mediator.Row, len(in))

	for _, r := range in {
		k := key{date: r.Date, app: r.Application, network: r.Network, platform: r.Platform, adType: r.AdType}
		existing, ok := merged[k]
		if !ok {
			merged[k] = r
			order = append(order, k)
			continue
		}
		existing.MaxRevenue += r.MaxRevenue
		existing.MaxImpressions += r.MaxImpressions
		existing.MaxECPM = schema.ComputeECPM(existing.MaxRevenue, existing.MaxImpressions)
		merged[k] = existing
	}

	out := make([]mediator.Row, 0, len(order))
	for _, k := range order {
		out = append(out, merged[k])
	}
	return out
}

// sortRows orders rows deterministically by (date, network, platform,
// ad_type, application), per spec.md §5.
func sortRows(rows []ComparisonRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Network != b.Network {
			return a.Network < b.Network
		}
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		if a.AdType != b.AdType {
			return a.AdType < b.AdType
		}
		return a.Application < b.Application
	})
}
