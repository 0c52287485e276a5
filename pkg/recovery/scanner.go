// Package recovery detects actions that were dispatched but never completed.
// It runs after a successful replay; an action with no observation anywhere
// later in the log means the process died mid-invocation, and the
// orchestrator should re-dispatch it.
package recovery

import (
	"github.com/odvcencio/scribe/pkg/event"
	"github.com/odvcencio/scribe/pkg/replay"
	"github.com/odvcencio/scribe/pkg/telemetry"
)

// UnmatchedActions returns the action IDs of every ActionEvent in the state
// that has no bound ObservationEvent, ordered by the actions' sequence
// numbers. Pure function of the state; no I/O. With a sequential single
// writer at most one trailing action is normally unmatched, but overlapping
// in-flight actions are supported.
func UnmatchedActions(state *replay.State) []string {
	if state == nil {
		return nil
	}

	events := state.Events()
	var unmatched []string
	for i := len(events) - 1; i >= 0; i-- {
		act, ok := events[i].(*event.ActionEvent)
		if !ok {
			continue
		}
		if _, answered := state.Observation(act.ActionID); answered {
			continue
		}
		unmatched = append(unmatched, act.ActionID)
	}

	// Reverse the reverse scan so callers re-dispatch in original order.
	for i, j := 0, len(unmatched)-1; i < j; i, j = i+1, j-1 {
		unmatched[i], unmatched[j] = unmatched[j], unmatched[i]
	}

	telemetry.RecordUnmatchedActions(len(unmatched))
	return unmatched
}

// Interrupted reports whether the state carries any dangling action, i.e. the
// previous run terminated mid-operation.
func Interrupted(state *replay.State) bool {
	return len(UnmatchedActions(state)) > 0
}
