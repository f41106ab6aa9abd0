// Package alert implements C9: turning a run's ComparisonRows into a
// structured (not string) notification payload. Per-row threshold
// evaluation is grounded on
// internal/webhooks/matcher/large_transfer.go and the rest of
// internal/webhooks/matcher/* — each matcher there evaluates one
// condition against a numeric/percentage threshold and returns a
// match/no-match plus reason, the same shape this package uses for
// "mark those whose |rev_delta_pct| > threshold". Payload assembly and
// per-network block ordering is grounded on
// internal/webhooks/orchestrator.go's fan-out-over-targets, building one
// structured message per target.
package alert

import (
	"sort"
	"time"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/reconcile"
	"mediation-reconciler/internal/schema"
)

// Config is the alert formatter's tunables (spec.md §4.9, §6 "validation").
type Config struct {
	MinRevenueFloor float64
	ThresholdPct    float64
}

// DefaultConfig matches spec.md's documented defaults.
func DefaultConfig() Config {
	return Config{MinRevenueFloor: 25, ThresholdPct: 10}
}

// NetworkSummary is one network's per-run rollup.
type NetworkSummary struct {
	Network              schema.Network
	LastAvailableDate     string
	TotalMaxRevenue       float64
	TotalNetworkRevenue   float64
	AggregateRevDeltaPct  *float64
	AggregateImpDeltaPct  *float64
	ThresholdExceeded     bool
	CoveragePct           float64 // compared_max_revenue / all_max_revenue * 100
}

// NetworkBlock pairs a summary with the individual breaching rows the
// payload's placement table needs.
type NetworkBlock struct {
	Summary  NetworkSummary
	Breaches []reconcile.ComparisonRow
}

// DailySummary is the end-of-payload roll-up at window.End.
type DailySummary struct {
	Date                string
	TotalMaxRevenue     float64
	TotalNetworkRevenue float64
	Networks            []schema.Network
}

// Payload is the structured notification object, never a preformatted
// string — the delivery layer (a future Slack/webhook sender) decides
// how to render it.
type Payload struct {
	RunID                string // set by the orchestrator, correlates this payload to a RunSummary
	Header               string // "all-normal" or "threshold-exceeded"
	Window                fetcher.DateRange
	RunTimestamp          time.Time
	BreachedRowCount      int
	BreachedNetworkCount  int
	Exceeded              []NetworkBlock // sorted by TotalMaxRevenue descending
	Normal                []NetworkBlock // compact line each, same ordering
	Failed                []schema.Network
	Daily                 DailySummary
}

// Formatter builds a Payload from one run's ComparisonRows.
type Formatter struct {
	cfg Config
}

func New(cfg Config) *Formatter { return &Formatter{cfg: cfg} }

// Format implements the filtering/coverage/ranking/payload steps of
// spec.md §4.9.
func (f *Formatter) Format(rows []reconcile.ComparisonRow, failed map[schema.Network]error, window fetcher.DateRange, now time.Time) Payload {
	byNetwork := make(map[schema.Network][]reconcile.ComparisonRow)
	for _, r := range rows {
		byNetwork[r.Network] = append(byNetwork[r.Network], r)
	}

	var exceeded, normal []NetworkBlock
	for net, netRows := range byNetwork {
		block := f.summarize(net, netRows)
		if block.Summary.ThresholdExceeded {
			exceeded = append(exceeded, block)
		} else {
			normal = append(normal, block)
		}
	}
	sortByRevenueDesc(exceeded)
	sortByRevenueDesc(normal)

	var failedList []schema.Network
	for net := range failed {
		failedList = append(failedList, net)
	}
	sort.Slice(failedList, func(i, j int) bool { return failedList[i] < failedList[j] })

	header := "all-normal"
	breachedRows := 0
	for _, b := range exceeded {
		breachedRows += len(b.Breaches)
	}
	if len(exceeded) > 0 {
		header = "threshold-exceeded"
	}

	return Payload{
		Header:               header,
		Window:               window,
		RunTimestamp:         now,
		BreachedRowCount:     breachedRows,
		BreachedNetworkCount: len(exceeded),
		Exceeded:             exceeded,
		Normal:               normal,
		Failed:               failedList,
		Daily:                f.dailySummary(rows, window),
	}
}

func (f *Formatter) summarize(net schema.Network, rows []reconcile.ComparisonRow) NetworkBlock {
	var totalMax, totalNetwork, comparedMax float64
	var totalMaxImp, totalNetworkImp float64
	var lastDate string
	var breaches []reconcile.ComparisonRow

	for _, r := range rows {
		totalMax += r.MaxRevenue
		totalMaxImp += float64(r.MaxImpressions)
		if r.HasNetworkData {
			totalNetwork += r.NetworkRevenue
			totalNetworkImp += float64(r.NetworkImpressions)
			comparedMax += r.MaxRevenue
			if r.Date > lastDate {
				lastDate = r.Date
			}
		}
		if r.MaxRevenue < f.cfg.MinRevenueFloor {
			continue // floor-filtered: never counted toward a breach
		}
		if r.HasNetworkData && r.RevDeltaPct != nil {
			abs := *r.RevDeltaPct
			if abs < 0 {
				abs = -abs
			}
			if abs > f.cfg.ThresholdPct {
				breaches = append(breaches, r)
			}
		}
	}

	summary := NetworkSummary{
		Network:             net,
		LastAvailableDate:   lastDate,
		TotalMaxRevenue:     totalMax,
		TotalNetworkRevenue: totalNetwork,
		ThresholdExceeded:   len(breaches) > 0,
	}
	if v, ok := schema.DeltaPct(totalMax, totalNetwork); ok {
		summary.AggregateRevDeltaPct = &v
	}
	if v, ok := schema.DeltaPct(totalMaxImp, totalNetworkImp); ok {
		summary.AggregateImpDeltaPct = &v
	}
	if totalMax > 0 {
		summary.CoveragePct = comparedMax / totalMax * 100
	}

	return NetworkBlock{Summary: summary, Breaches: breaches}
}

func (f *Formatter) dailySummary(rows []reconcile.ComparisonRow, window fetcher.DateRange) DailySummary {
	end := window.End.Format("2006-01-02")
	seen := make(map[schema.Network]bool)
	var totalMax, totalNetwork float64
	var networks []schema.Network

	for _, r := range rows {
		if r.Date != end {
			continue
		}
		totalMax += r.MaxRevenue
		if r.HasNetworkData {
			totalNetwork += r.NetworkRevenue
		}
		if !seen[r.Network] {
			seen[r.Network] = true
			networks = append(networks, r.Network)
		}
	}
	sort.Slice(networks, func(i, j int) bool { return networks[i] < networks[j] })

	return DailySummary{
		Date:                end,
		TotalMaxRevenue:     totalMax,
		TotalNetworkRevenue: totalNetwork,
		Networks:            networks,
	}
}

// sortByRevenueDesc orders blocks by TotalMaxRevenue descending, with a
// deterministic name tie-break, per spec.md §5's alert iteration order.
func sortByRevenueDesc(blocks []NetworkBlock) {
	sort.Slice(blocks, func(i, j int) bool {
		a, b := blocks[i].Summary, blocks[j].Summary
		if a.TotalMaxRevenue != b.TotalMaxRevenue {
			return a.TotalMaxRevenue > b.TotalMaxRevenue
		}
		return a.Network.String() < b.Network.String()
	})
}
