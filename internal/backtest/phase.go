package backtest

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPhaseTransition is returned for any move that is not strictly forward.
var ErrPhaseTransition = errors.New("invalid phase transition")

type Phase int

const (
	PhaseCollecting Phase = iota
	PhaseEnumerating
	PhaseSimulating
	PhaseAggregating
	PhaseRanked
)

var phaseNames = [...]string{"collecting", "enumerating", "simulating", "aggregating", "ranked"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// PhaseHook observes phase changes of a run.
type PhaseHook func(runID string, p Phase)

// Run is the state machine of one backtest: a single forward pass.
type Run struct {
	ID string

	mu    sync.Mutex
	phase Phase
	hook  PhaseHook
}

func NewRun(id string, hook PhaseHook) *Run {
	r := &Run{ID: id, phase: PhaseCollecting, hook: hook}
	if hook != nil {
		hook(id, PhaseCollecting)
	}
	return r
}

func (r *Run) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Advance moves the run to a later phase.
func (r *Run) Advance(to Phase) error {
	r.mu.Lock()
	from := r.phase
	if to <= from || to > PhaseRanked {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrPhaseTransition, from, to)
	}
	r.phase = to
	r.mu.Unlock()

	if r.hook != nil {
		r.hook(r.ID, to)
	}
	return nil
}
