package replace

import (
	"github.com/rs/zerolog"
)

// 🚦 RunState is the phase a single Preview or Apply run is in
type RunState int

const (
	StateIdle RunState = iota
	StateClassifyingFields
	StatePaginating
	StateDiffing
	StatePreviewing
	StateWriting
	StateDone
	StateFailed
)

// String returns the string representation of the state
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClassifyingFields:
		return "classifying_fields"
	case StatePaginating:
		return "paginating"
	case StateDiffing:
		return "diffing"
	case StatePreviewing:
		return "previewing"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

var transitions = map[RunState][]RunState{
	StateIdle:              {StateClassifyingFields},
	StateClassifyingFields: {StatePaginating, StateDone},
	StatePaginating:        {StateDiffing},
	StateDiffing:           {StatePreviewing, StateWriting},
	StatePreviewing:        {StateDone},
	StateWriting:           {StateDone},
}

// CanTransition reports whether a run may move from one state to another.
// Any non-terminal state may fail.
func CanTransition(from, to RunState) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Event is a single state change of a run
type Event struct {
	RunID   string
	TableID string
	State   RunState
}

// 👀 Observer is notified on every state change of a run
type Observer func(ev Event)

// run tracks one invocation's state and carries its logger.
type run struct {
	id       string
	tableID  string
	state    RunState
	observer Observer
	logger   zerolog.Logger
}

func (r *run) enter(to RunState) {
	if !CanTransition(r.state, to) {
		// programming error, keep going but make it loud
		r.logger.Error().Stringer("from", r.state).Stringer("to", to).Msg("invalid run transition")
	}
	r.logger.Debug().Stringer("from", r.state).Stringer("state", to).Msg("run state")
	r.state = to
	if r.observer != nil {
		r.observer(Event{RunID: r.id, TableID: r.tableID, State: to})
	}
}

// fail moves the run to Failed and returns err unchanged.
func (r *run) fail(err error) error {
	r.enter(StateFailed)
	r.logger.Error().Err(err).Msg("run failed")
	return err
}
