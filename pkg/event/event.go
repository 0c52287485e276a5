// Package event defines the typed, serializable records that make up a
// session's append-only log. The set of kinds is closed: deserialization
// rejects anything it does not recognize.
package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Kind identifies the type of a persisted event.
type Kind string

const (
	// KindSystemPrompt records the system prompt installed at session start.
	KindSystemPrompt Kind = "SystemPromptEvent"
	// KindMessage records a user or agent message.
	KindMessage Kind = "MessageEvent"
	// KindAction records a tool invocation being dispatched.
	KindAction Kind = "ActionEvent"
	// KindObservation records the result of a previously dispatched action.
	KindObservation Kind = "ObservationEvent"
	// KindStateUpdate records an out-of-band conversation state change.
	KindStateUpdate Kind = "ConversationStateUpdateEvent"
	// KindAgentError records a non-fatal agent-side error.
	KindAgentError Kind = "AgentErrorEvent"
)

// Kinds returns every known event kind.
func Kinds() []Kind {
	return []Kind{
		KindSystemPrompt,
		KindMessage,
		KindAction,
		KindObservation,
		KindStateUpdate,
		KindAgentError,
	}
}

// IsValid reports whether k is a known event kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindSystemPrompt, KindMessage, KindAction, KindObservation, KindStateUpdate, KindAgentError:
		return true
	}
	return false
}

// Observation result status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Event is the common interface over all persisted record variants.
type Event interface {
	// Kind returns the variant discriminator.
	Kind() Kind
	// Seq returns the event's sequence number within its session.
	Seq() uint64
	// SessionID returns the owning session.
	SessionID() string
	// Timestamp returns when the event was recorded.
	Timestamp() time.Time
	// Validate checks the variant-specific schema.
	Validate() error
}

// Base holds the fields shared by every event variant.
type Base struct {
	EventKind Kind      `json:"kind"`
	Sequence  uint64    `json:"seq"`
	Session   string    `json:"session_id"`
	Time      time.Time `json:"timestamp"`
}

// Kind returns the variant discriminator.
func (b Base) Kind() Kind { return b.EventKind }

// Seq returns the event's sequence number.
func (b Base) Seq() uint64 { return b.Sequence }

// SessionID returns the owning session.
func (b Base) SessionID() string { return b.Session }

// Timestamp returns when the event was recorded.
func (b Base) Timestamp() time.Time { return b.Time }

func (b Base) validateBase() error {
	if !b.EventKind.IsValid() {
		return fmt.Errorf("unknown event kind %q", b.EventKind)
	}
	if strings.TrimSpace(b.Session) == "" {
		return fmt.Errorf("missing session id")
	}
	if b.Time.IsZero() {
		return fmt.Errorf("missing timestamp")
	}
	return nil
}

// SystemPromptEvent records the system prompt installed at session start.
type SystemPromptEvent struct {
	Base
	Prompt string   `json:"prompt"`
	Tools  []string `json:"tools,omitempty"`
}

// Validate checks the variant schema.
func (e *SystemPromptEvent) Validate() error {
	if err := e.validateBase(); err != nil {
		return err
	}
	if e.Prompt == "" {
		return fmt.Errorf("system prompt event: empty prompt")
	}
	return nil
}

// MessageEvent records a user or agent message.
type MessageEvent struct {
	Base
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Validate checks the variant schema.
func (e *MessageEvent) Validate() error {
	if err := e.validateBase(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Role) == "" {
		return fmt.Errorf("message event: missing role")
	}
	return nil
}

// ActionEvent records a tool invocation being dispatched. ActionID pairs it
// with the ObservationEvent that eventually records the result.
type ActionEvent struct {
	Base
	ActionID string         `json:"action_id"`
	Tool     string         `json:"tool"`
	Args     map[string]any `json:"args,omitempty"`
	CallID   string         `json:"call_id,omitempty"`
}

// Validate checks the variant schema.
func (e *ActionEvent) Validate() error {
	if err := e.validateBase(); err != nil {
		return err
	}
	if strings.TrimSpace(e.ActionID) == "" {
		return fmt.Errorf("action event: missing action id")
	}
	if strings.TrimSpace(e.Tool) == "" {
		return fmt.Errorf("action event: missing tool name")
	}
	return nil
}

// ObservationEvent records the result of a previously dispatched action.
type ObservationEvent struct {
	Base
	ActionID string `json:"action_id"`
	Result   any    `json:"result,omitempty"`
	Status   string `json:"status"`
}

// Validate checks the variant schema.
func (e *ObservationEvent) Validate() error {
	if err := e.validateBase(); err != nil {
		return err
	}
	if strings.TrimSpace(e.ActionID) == "" {
		return fmt.Errorf("observation event: missing action id")
	}
	switch e.Status {
	case StatusSuccess, StatusError, StatusTimeout:
	default:
		return fmt.Errorf("observation event: invalid status %q", e.Status)
	}
	return nil
}

// ConversationStateUpdateEvent records an out-of-band state change such as a
// confirmation-mode toggle or title update.
type ConversationStateUpdateEvent struct {
	Base
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
}

// Validate checks the variant schema.
func (e *ConversationStateUpdateEvent) Validate() error {
	if err := e.validateBase(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Key) == "" {
		return fmt.Errorf("state update event: missing key")
	}
	return nil
}

// AgentErrorEvent records a non-fatal agent-side error.
type AgentErrorEvent struct {
	Base
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Validate checks the variant schema.
func (e *AgentErrorEvent) Validate() error {
	if err := e.validateBase(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Errorf("agent error event: missing message")
	}
	return nil
}

func newBase(kind Kind, seq uint64, sessionID string) Base {
	return Base{
		EventKind: kind,
		Sequence:  seq,
		Session:   sessionID,
		Time:      time.Now().UTC(),
	}
}

// NewSystemPrompt creates a system prompt event.
func NewSystemPrompt(seq uint64, sessionID, prompt string, tools []string) *SystemPromptEvent {
	return &SystemPromptEvent{
		Base:   newBase(KindSystemPrompt, seq, sessionID),
		Prompt: prompt,
		Tools:  tools,
	}
}

// NewMessage creates a message event.
func NewMessage(seq uint64, sessionID, role, content string) *MessageEvent {
	return &MessageEvent{
		Base:    newBase(KindMessage, seq, sessionID),
		Role:    role,
		Content: content,
	}
}

// NewAction creates an action event with a fresh action ID and call ID.
func NewAction(seq uint64, sessionID, tool string, args map[string]any) *ActionEvent {
	return &ActionEvent{
		Base:     newBase(KindAction, seq, sessionID),
		ActionID: ulid.Make().String(),
		Tool:     tool,
		Args:     args,
		CallID:   uuid.NewString(),
	}
}

// NewObservation creates an observation event answering the given action.
func NewObservation(seq uint64, sessionID, actionID string, result any, status string) *ObservationEvent {
	return &ObservationEvent{
		Base:     newBase(KindObservation, seq, sessionID),
		ActionID: actionID,
		Result:   result,
		Status:   status,
	}
}

// NewStateUpdate creates a conversation state update event.
func NewStateUpdate(seq uint64, sessionID, key string, value any) *ConversationStateUpdateEvent {
	return &ConversationStateUpdateEvent{
		Base:  newBase(KindStateUpdate, seq, sessionID),
		Key:   key,
		Value: value,
	}
}

// NewAgentError creates an agent error event.
func NewAgentError(seq uint64, sessionID, message, detail string) *AgentErrorEvent {
	return &AgentErrorEvent{
		Base:    newBase(KindAgentError, seq, sessionID),
		Message: message,
		Detail:  detail,
	}
}
