// Package eventlog implements the durable append-only store and the
// metadata-only index over a session's event directory. One store instance is
// bound to one session directory; appends are serialized by an advisory file
// lock so at most one writer is in the directory at any instant.
package eventlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/odvcencio/scribe/pkg/event"
	"github.com/odvcencio/scribe/pkg/logging"
	"github.com/odvcencio/scribe/pkg/telemetry"
)

const (
	eventsDirName = "events"
	lockFileName  = ".eventlog.lock"

	// DefaultLockTimeout bounds how long an append waits for the session lock.
	DefaultLockTimeout = 30 * time.Second
	// DefaultLockRetryInterval is the delay between lock acquisition attempts.
	DefaultLockRetryInterval = 25 * time.Millisecond
)

// Appended describes one durable append, delivered to observers after the
// rename makes the event visible.
type Appended struct {
	SessionID string
	Seq       uint64
	Kind      event.Kind
	Bytes     int
	Path      string
}

// Observer reacts to durable appends.
type Observer interface {
	HandleAppend(Appended)
}

// ObserverFunc is a helper to turn a function into an Observer.
type ObserverFunc func(Appended)

// HandleAppend implements the Observer interface.
func (f ObserverFunc) HandleAppend(a Appended) {
	f(a)
}

// Store is a durable append-only writer/reader for one session's event log.
type Store struct {
	sessionID     string
	dir           string
	lock          *flock.Flock
	lockTimeout   time.Duration
	retryInterval time.Duration
	log           *logging.Logger

	observerMu sync.RWMutex
	observers  []Observer
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long Append waits for the session lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithLockRetryInterval sets the delay between lock acquisition attempts.
func WithLockRetryInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.retryInterval = d
		}
	}
}

// WithLogger attaches a structured logger to the store and its index rebuilds.
func WithLogger(log *logging.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// Open binds a store to one session's event directory under root, creating
// the directory if the session is new.
func Open(root, sessionID string, opts ...Option) (*Store, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	dir := filepath.Join(root, sessionID, eventsDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create event directory: %w", err)
	}

	s := &Store{
		sessionID:     sessionID,
		dir:           dir,
		lock:          flock.New(filepath.Join(dir, lockFileName)),
		lockTimeout:   DefaultLockTimeout,
		retryInterval: DefaultLockRetryInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SessionID returns the session this store is bound to.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Dir returns the session's event directory.
func (s *Store) Dir() string {
	return s.dir
}

// Subscribe registers an observer for durable appends.
func (s *Store) Subscribe(obs Observer) {
	if obs == nil {
		return
	}
	s.observerMu.Lock()
	s.observers = append(s.observers, obs)
	s.observerMu.Unlock()
}

// Index rebuilds the metadata-only index for this session.
func (s *Store) Index() ([]Ref, error) {
	return RebuildIndex(s.dir, s.log)
}

// NextSeq returns the next unused sequence number. Advisory: the value is
// re-derived under the lock during Append, so a stale answer surfaces as a
// SequenceConflictError rather than a duplicate file.
func (s *Store) NextSeq() (uint64, error) {
	refs, err := s.Index()
	if err != nil {
		return 0, err
	}
	if len(refs) == 0 {
		return 1, nil
	}
	return refs[len(refs)-1].Seq + 1, nil
}

// Append durably persists one event. It acquires the session lock (bounded
// wait), verifies the caller-assigned sequence against the on-disk index,
// writes the serialized event to a temporary name, syncs it, and renames it
// into place. A correctly named file with incomplete content is never
// visible: the write either completes and is renamed, or it does not exist.
func (s *Store) Append(ctx context.Context, ev event.Event) error {
	if ev == nil {
		return fmt.Errorf("event is nil")
	}
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "eventlog.append", s.sessionID)
	defer span.End()

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(lockCtx, s.retryInterval)
	if err != nil || !locked {
		telemetry.RecordLockTimeout()
		s.log.Warn(logging.CategoryStore, "lock_timeout", "gave up waiting for session lock", map[string]any{
			"timeout": s.lockTimeout.String(),
		})
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrLockTimeout, err)
		}
		return fmt.Errorf("%w after %s", ErrLockTimeout, s.lockTimeout)
	}
	defer s.lock.Unlock()

	// Re-derive the next sequence while holding the lock; the caller's value
	// must match exactly (gapless, strictly increasing).
	refs, err := RebuildIndex(s.dir, s.log)
	if err != nil {
		return err
	}
	next := uint64(1)
	if len(refs) > 0 {
		next = refs[len(refs)-1].Seq + 1
	}
	if ev.SessionID() != s.sessionID {
		return fmt.Errorf("%w: event for %q, store bound to %q", ErrSessionMismatch, ev.SessionID(), s.sessionID)
	}
	if ev.Seq() != next {
		return &SequenceConflictError{SessionID: s.sessionID, Expected: next, Got: ev.Seq()}
	}

	data, err := event.Marshal(ev)
	if err != nil {
		return err
	}

	finalPath := filepath.Join(s.dir, Filename(ev.Seq(), ev.Kind()))
	if err := s.writeAtomic(finalPath, data); err != nil {
		telemetry.RecordAppendFailure()
		s.log.Error(logging.CategoryStore, "append_failed", err.Error(), map[string]any{
			"seq":  ev.Seq(),
			"kind": string(ev.Kind()),
		})
		return err
	}

	telemetry.RecordAppend(string(ev.Kind()), time.Since(start))
	s.log.Debug(logging.CategoryStore, "append", "event persisted", map[string]any{
		"seq":   ev.Seq(),
		"kind":  string(ev.Kind()),
		"bytes": len(data),
	})
	s.notify(Appended{
		SessionID: s.sessionID,
		Seq:       ev.Seq(),
		Kind:      ev.Kind(),
		Bytes:     len(data),
		Path:      finalPath,
	})
	return nil
}

// writeAtomic writes data to a temporary name, forces it to durable storage,
// and renames it into place, then syncs the directory so the rename itself is
// durable.
func (s *Store) writeAtomic(finalPath string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-event-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync event: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename event into place: %w", err)
	}
	return s.syncDir()
}

func (s *Store) syncDir() error {
	d, err := os.Open(s.dir)
	if err != nil {
		return fmt.Errorf("failed to open event directory for sync: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync event directory: %w", err)
	}
	return nil
}

// Read returns the raw bytes for one indexed event.
func (s *Store) Read(ref Ref) ([]byte, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event %d: %w", ref.Seq, err)
	}
	return data, nil
}

func (s *Store) notify(a Appended) {
	s.observerMu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.observerMu.RUnlock()

	for _, obs := range observers {
		obs.HandleAppend(a)
	}
}
