// Package replay rebuilds in-memory session state by folding a session's
// persisted events in sequence order. It runs synchronously at startup and
// after a crash, before the session resumes issuing new actions; it is
// idempotent and side-effect-free, so repeating an interrupted replay is
// always safe.
package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/odvcencio/scribe/pkg/event"
	"github.com/odvcencio/scribe/pkg/eventlog"
	"github.com/odvcencio/scribe/pkg/logging"
	"github.com/odvcencio/scribe/pkg/telemetry"
)

// CorruptEventError indicates a persisted event that failed to deserialize or
// validate. It is fatal for the whole replay: skipping would produce a state
// inconsistent with what was actually persisted. The session is blocked until
// manually remediated; other sessions are unaffected.
type CorruptEventError struct {
	SessionID string
	Seq       uint64
	Path      string
	Err       error
}

func (e *CorruptEventError) Error() string {
	return fmt.Sprintf("corrupt event %d in session %s (%s): %v", e.Seq, e.SessionID, e.Path, e.Err)
}

func (e *CorruptEventError) Unwrap() error {
	return e.Err
}

// Replay reads and folds every persisted event of the store's session into a
// fresh State. The index is snapshotted once up front, so a writer appending
// concurrently extends the log without disturbing the scan.
func Replay(ctx context.Context, store *eventlog.Store, log *logging.Logger) (*State, error) {
	start := time.Now()
	_, span := telemetry.StartSpan(ctx, "replay.session", store.SessionID())
	defer span.End()

	refs, err := store.Index()
	if err != nil {
		return nil, err
	}

	state := NewState(store.SessionID())
	for i, ref := range refs {
		data, err := store.Read(ref)
		if err != nil {
			return nil, &CorruptEventError{SessionID: store.SessionID(), Seq: ref.Seq, Path: ref.Path, Err: err}
		}
		ev, err := event.Unmarshal(data)
		if err != nil {
			log.Error(logging.CategoryReplay, "corrupt_event", err.Error(), map[string]any{
				"seq":  ref.Seq,
				"path": ref.Path,
			})
			return nil, &CorruptEventError{SessionID: store.SessionID(), Seq: ref.Seq, Path: ref.Path, Err: err}
		}
		if ev.Kind() != ref.Kind {
			err := fmt.Errorf("filename declares %s, payload is %s", ref.Kind, ev.Kind())
			return nil, &CorruptEventError{SessionID: store.SessionID(), Seq: ref.Seq, Path: ref.Path, Err: err}
		}
		// Sequences are gapless and strictly increasing per session.
		if want := uint64(i + 1); ev.Seq() != want {
			err := fmt.Errorf("sequence gap: expected %d, found %d", want, ev.Seq())
			return nil, &CorruptEventError{SessionID: store.SessionID(), Seq: ref.Seq, Path: ref.Path, Err: err}
		}
		state.Apply(ev)
	}

	telemetry.RecordReplay(state.Len(), time.Since(start))
	log.Info(logging.CategoryReplay, "replay_complete", "session state rebuilt", map[string]any{
		"events":   state.Len(),
		"max_seq":  state.MaxSeq(),
		"duration": time.Since(start).String(),
	})
	return state, nil
}
