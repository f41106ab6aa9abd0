package reconcile

import (
	"time"

	"github.com/google/uuid"

	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/schema"
)

// RunState is the reconciliation run's explicit lifecycle, mirroring the
// teacher's indexer checkpoint states rather than leaving run phase
// implicit in control flow.
type RunState int

const (
	StatePlanned RunState = iota
	StateFetching
	StateReconciling
	StateExporting
	StateAlerting
	StateDone
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateReconciling:
		return "reconciling"
	case StateExporting:
		return "exporting"
	case StateAlerting:
		return "alerting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "planned"
	}
}

// Transition is one observed state change, timestamped for the run log.
type Transition struct {
	From RunState
	To   RunState
	At   time.Time
}

// RunSummary is the observable record of one reconciliation run: its
// window, its current/final state, every transition it went through, and
// the per-network outcome.
type RunSummary struct {
	RunID                  string
	Window                 fetcher.DateRange
	State                  RunState
	Transitions            []Transition
	FailedNetworks         map[schema.Network]error
	UnresolvedMediatorRows int
	RowCount               int
}

// NewRunSummary returns a RunSummary in StatePlanned for window, tagged
// with a fresh run ID so a run's logs, exported partitions and alert
// payload can all be correlated back to it.
func NewRunSummary(window fetcher.DateRange) *RunSummary {
	return &RunSummary{
		RunID:          uuid.NewString(),
		Window:         window,
		State:          StatePlanned,
		FailedNetworks: make(map[schema.Network]error),
	}
}

// Advance transitions the run to to, recording the transition. Callers
// (the orchestrator) are responsible for calling this at each pipeline
// stage boundary; reconcile itself only advances to reconciling at the
// start of its own Reconcile call.
func (s *RunSummary) Advance(to RunState, now time.Time) {
	s.Transitions = append(s.Transitions, Transition{From: s.State, To: to, At: now})
	s.State = to
}
