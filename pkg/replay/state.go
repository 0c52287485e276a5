package replay

import (
	"github.com/odvcencio/scribe/pkg/event"
)

// State is the in-memory session state folded from the ordered event stream.
// It is rebuilt fresh on every replay and never persisted directly.
type State struct {
	sessionID    string
	events       []event.Event
	actions      map[string]*event.ActionEvent
	observations map[string]*event.ObservationEvent
	maxSeq       uint64
}

// NewState creates an empty state for one session.
func NewState(sessionID string) *State {
	return &State{
		sessionID:    sessionID,
		actions:      make(map[string]*event.ActionEvent),
		observations: make(map[string]*event.ObservationEvent),
	}
}

// Apply folds one event into the state. Events must be applied in sequence
// order; Replay guarantees this.
func (s *State) Apply(ev event.Event) {
	s.events = append(s.events, ev)
	if ev.Seq() > s.maxSeq {
		s.maxSeq = ev.Seq()
	}
	switch e := ev.(type) {
	case *event.ActionEvent:
		s.actions[e.ActionID] = e
	case *event.ObservationEvent:
		s.observations[e.ActionID] = e
	}
}

// SessionID returns the session this state was folded for.
func (s *State) SessionID() string {
	return s.sessionID
}

// Events returns the applied events in sequence order.
func (s *State) Events() []event.Event {
	return s.events
}

// Len returns the number of applied events.
func (s *State) Len() int {
	return len(s.events)
}

// MaxSeq returns the highest applied sequence number, zero for a cold session.
func (s *State) MaxSeq() uint64 {
	return s.maxSeq
}

// Action returns the action event with the given action ID, if applied.
func (s *State) Action(actionID string) (*event.ActionEvent, bool) {
	a, ok := s.actions[actionID]
	return a, ok
}

// Observation returns the observation bound to the given action ID, if any.
func (s *State) Observation(actionID string) (*event.ObservationEvent, bool) {
	o, ok := s.observations[actionID]
	return o, ok
}
