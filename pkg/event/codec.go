package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind indicates a payload whose kind discriminator is not part of
// the closed variant set.
var ErrUnknownKind = errors.New("unknown event kind")

// Marshal serializes an event to its on-disk JSON form. The event is
// validated first so an invalid record never reaches storage.
func Marshal(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("event is nil")
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ev.Kind(), err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Kind(), err)
	}
	return data, nil
}

// Unmarshal deserializes a JSON payload into the event variant declared by
// its kind discriminator, then validates the variant schema. Unknown kinds
// are rejected, never coerced.
func Unmarshal(data []byte) (Event, error) {
	var head struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}

	var ev Event
	switch head.Kind {
	case KindSystemPrompt:
		ev = &SystemPromptEvent{}
	case KindMessage:
		ev = &MessageEvent{}
	case KindAction:
		ev = &ActionEvent{}
	case KindObservation:
		ev = &ObservationEvent{}
	case KindStateUpdate:
		ev = &ConversationStateUpdateEvent{}
	case KindAgentError:
		ev = &AgentErrorEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, head.Kind)
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("parse %s: %w", head.Kind, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", head.Kind, err)
	}
	return ev, nil
}
