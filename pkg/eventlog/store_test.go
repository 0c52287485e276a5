package eventlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/scribe/pkg/event"
)

func openTestStore(t *testing.T, sessionID string) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), sessionID)
	require.NoError(t, err)
	return store
}

func TestAppendCreatesOneFilePerEvent(t *testing.T) {
	store := openTestStore(t, "sess-1")
	ctx := context.Background()

	events := []event.Event{
		event.NewSystemPrompt(1, "sess-1", "prompt", nil),
		event.NewMessage(2, "sess-1", "user", "hello"),
	}
	var totalBytes int
	for _, ev := range events {
		require.NoError(t, store.Append(ctx, ev))
		data, err := event.Marshal(ev)
		require.NoError(t, err)
		totalBytes += len(data)
	}

	refs, err := store.Index()
	require.NoError(t, err)
	require.Len(t, refs, len(events))

	// Linear storage: file count equals event count, bytes equal the sum of
	// serialized sizes.
	var onDisk int
	for _, ref := range refs {
		info, err := os.Stat(ref.Path)
		require.NoError(t, err)
		onDisk += int(info.Size())
	}
	assert.Equal(t, totalBytes, onDisk)

	// No temp files left behind.
	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".tmp-"), "leftover temp file %s", entry.Name())
	}
}

func TestAppendedFilesDeserializeToDeclaredKind(t *testing.T) {
	store := openTestStore(t, "sess-1")
	ctx := context.Background()

	act := event.NewAction(1, "sess-1", "terminal", map[string]any{"command": "go test"})
	require.NoError(t, store.Append(ctx, act))
	require.NoError(t, store.Append(ctx, event.NewObservation(2, "sess-1", act.ActionID, "ok", event.StatusSuccess)))

	refs, err := store.Index()
	require.NoError(t, err)
	for _, ref := range refs {
		data, err := store.Read(ref)
		require.NoError(t, err)
		ev, err := event.Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, ref.Kind, ev.Kind())
		assert.Equal(t, ref.Seq, ev.Seq())
	}
}

func TestAppendRejectsSequenceReuse(t *testing.T) {
	store := openTestStore(t, "sess-1")
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, event.NewMessage(1, "sess-1", "user", "hi")))

	err := store.Append(ctx, event.NewMessage(1, "sess-1", "user", "again"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSequenceConflict)

	var conflict *SequenceConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, uint64(2), conflict.Expected)
	assert.Equal(t, uint64(1), conflict.Got)
}

func TestAppendRejectsGaps(t *testing.T) {
	store := openTestStore(t, "sess-1")
	err := store.Append(context.Background(), event.NewMessage(5, "sess-1", "user", "hi"))
	assert.ErrorIs(t, err, ErrSequenceConflict)
}

func TestAppendRejectsWrongSession(t *testing.T) {
	store := openTestStore(t, "sess-1")
	err := store.Append(context.Background(), event.NewMessage(1, "other", "user", "hi"))
	assert.ErrorIs(t, err, ErrSessionMismatch)
}

func TestAppendLockTimeout(t *testing.T) {
	root := t.TempDir()
	store, err := Open(root, "sess-1",
		WithLockTimeout(50*time.Millisecond),
		WithLockRetryInterval(5*time.Millisecond))
	require.NoError(t, err)

	// Hold the session lock from the outside.
	holder := flock.New(filepath.Join(store.Dir(), lockFileName))
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer holder.Unlock()

	err = store.Append(context.Background(), event.NewMessage(1, "sess-1", "user", "hi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockTimeout)

	// The failed append left nothing behind.
	refs, err := store.Index()
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestAppendRetriesAfterLockRelease(t *testing.T) {
	root := t.TempDir()
	store, err := Open(root, "sess-1",
		WithLockTimeout(2*time.Second),
		WithLockRetryInterval(5*time.Millisecond))
	require.NoError(t, err)

	holder := flock.New(filepath.Join(store.Dir(), lockFileName))
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	done := make(chan error, 1)
	go func() {
		done <- store.Append(context.Background(), event.NewMessage(1, "sess-1", "user", "hi"))
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, holder.Unlock())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("append did not complete after lock release")
	}
}

func TestNextSeq(t *testing.T) {
	store := openTestStore(t, "sess-1")

	next, err := store.NextSeq()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next)

	require.NoError(t, store.Append(context.Background(), event.NewMessage(1, "sess-1", "user", "hi")))
	next, err = store.NextSeq()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)
}

func TestObserversSeeDurableAppends(t *testing.T) {
	store := openTestStore(t, "sess-1")

	var seen []Appended
	store.Subscribe(ObserverFunc(func(a Appended) {
		seen = append(seen, a)
	}))

	require.NoError(t, store.Append(context.Background(), event.NewMessage(1, "sess-1", "user", "hi")))
	require.Len(t, seen, 1)
	assert.Equal(t, "sess-1", seen[0].SessionID)
	assert.Equal(t, uint64(1), seen[0].Seq)
	assert.Equal(t, event.KindMessage, seen[0].Kind)
	assert.FileExists(t, seen[0].Path)
}

func TestAppendNeverOverwrites(t *testing.T) {
	store := openTestStore(t, "sess-1")
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, event.NewMessage(1, "sess-1", "user", "first")))
	refs, err := store.Index()
	require.NoError(t, err)
	original, err := store.Read(refs[0])
	require.NoError(t, err)

	// A conflicting append fails and the original bytes are untouched.
	require.Error(t, store.Append(ctx, event.NewMessage(1, "sess-1", "user", "second")))
	after, err := store.Read(refs[0])
	require.NoError(t, err)
	assert.Equal(t, original, after)
}
