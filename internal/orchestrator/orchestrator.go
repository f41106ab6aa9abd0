// Package orchestrator implements C10: the end-to-end daily/backfill
// driver that wires C1-C9 together. Concurrent fetch launch follows the
// teacher's main.go goroutine-wiring style — a plain sync.WaitGroup, one
// channel for the mediator result and one shared by all network results,
// rather than a generic worker-pool library or errgroup.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"mediation-reconciler/internal/alert"
	"mediation-reconciler/internal/export"
	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/mediator"
	"mediation-reconciler/internal/reconcile"
	"mediation-reconciler/internal/schema"
)

// Orchestrator wires one mediator fetcher, N enabled network fetchers,
// the reconciliation engine, the exporter and the alert formatter into
// one run.
type Orchestrator struct {
	Mediator *mediator.Fetcher
	Networks map[schema.Network]fetcher.Fetcher
	Engine   *reconcile.Engine
	Exporter *export.Writer // nil when export is disabled for this run
	Alerter  *alert.Formatter
	Delivery *alert.Delivery // nil skips Slack delivery (payload is still returned)
}

// Options controls which of a run's optional side effects execute.
type Options struct {
	NoExport bool
	NoAlert  bool
}

// Result is everything a run produced, returned to the CLI layer for
// exit-code decisions and logging.
type Result struct {
	Summary *reconcile.RunSummary
	Rows    []reconcile.ComparisonRow
	Payload *alert.Payload
}

// mediatorOutcome and networkOutcome carry one goroutine's result back
// over a channel — the shape main.go uses for its own async workers.
type mediatorOutcome struct {
	breakdown mediator.Breakdown
	err       error
}

type networkOutcome struct {
	network schema.Network
	result  reconcile.NetworkResult
}

// RunOnce executes one full planned->fetching->reconciling->exporting->
// alerting->done cycle for window.
func (o *Orchestrator) RunOnce(ctx context.Context, window fetcher.DateRange, opts Options, now time.Time) (Result, error) {
	summary := reconcile.NewRunSummary(window)
	summary.Advance(reconcile.StateFetching, now)

	mediatorCh := make(chan mediatorOutcome, 1)
	go func() {
		bd, err := o.Mediator.FetchMediator(ctx, window)
		mediatorCh <- mediatorOutcome{breakdown: bd, err: err}
	}()

	networkCh := make(chan networkOutcome, len(o.Networks))
	var wg sync.WaitGroup
	for net, f := range o.Networks {
		wg.Add(1)
		go func(net schema.Network, f fetcher.Fetcher) {
			defer wg.Done()
			raw, err := f.Fetch(ctx, window)
			networkCh <- networkOutcome{network: net, result: reconcile.NetworkResult{Raw: raw, Err: err}}
		}(net, f)
	}
	go func() {
		wg.Wait()
		close(networkCh)
	}()

	networkResults := make(map[schema.Network]reconcile.NetworkResult, len(o.Networks))
	for outcome := range networkCh {
		if outcome.result.Err != nil {
			log.Printf("[orchestrator] network %s failed: %v", outcome.network, outcome.result.Err)
		}
		networkResults[outcome.network] = outcome.result
	}

	mediatorResult := <-mediatorCh
	if mediatorResult.err != nil {
		summary.Advance(reconcile.StateFailed, now)
		return Result{Summary: summary}, fmt.Errorf("orchestrator: mediator fetch failed (fatal): %w", mediatorResult.err)
	}

	rows := o.Engine.Reconcile(mediatorResult.breakdown, networkResults, window, now, summary)

	if !opts.NoExport && o.Exporter != nil {
		summary.Advance(reconcile.StateExporting, now)
		if err := o.writePartitions(ctx, rows, now); err != nil {
			log.Printf("[orchestrator] export failed (non-fatal, alert still emits): %v", err)
		}
	}

	var payload *alert.Payload
	if !opts.NoAlert {
		summary.Advance(reconcile.StateAlerting, now)
		p := o.Alerter.Format(rows, summary.FailedNetworks, window, now)
		p.RunID = summary.RunID
		payload = &p
		if o.Delivery != nil {
			if err := o.Delivery.Send(ctx, p); err != nil {
				log.Printf("[orchestrator] alert delivery failed (non-fatal): %v", err)
			}
		}
	}

	summary.Advance(reconcile.StateDone, now)
	return Result{Summary: summary, Rows: rows, Payload: payload}, nil
}

// writePartitions groups rows by date and writes one PartitionSnapshot
// per date present in the run (a multi-day window produces one artifact
// per calendar day, per spec.md §3 PartitionSnapshot).
func (o *Orchestrator) writePartitions(ctx context.Context, rows []reconcile.ComparisonRow, now time.Time) error {
	byDate := make(map[string][]reconcile.ComparisonRow)
	for _, r := range rows {
		byDate[r.Date] = append(byDate[r.Date], r)
	}
	for date, dateRows := range byDate {
		if err := o.Exporter.WritePartition(ctx, date, export.FromComparisonRows(dateRows), now); err != nil {
			return fmt.Errorf("partition %s: %w", date, err)
		}
	}
	return nil
}
