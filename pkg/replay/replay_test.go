package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/scribe/pkg/event"
	"github.com/odvcencio/scribe/pkg/eventlog"
)

func seedSession(t *testing.T, root, sessionID string, events ...event.Event) *eventlog.Store {
	t.Helper()
	store, err := eventlog.Open(root, sessionID)
	require.NoError(t, err)
	for _, ev := range events {
		require.NoError(t, store.Append(context.Background(), ev))
	}
	return store
}

func TestReplayFoldsEventsInOrder(t *testing.T) {
	root := t.TempDir()
	act := event.NewAction(3, "sess-1", "terminal", map[string]any{"command": "ls"})
	store := seedSession(t, root, "sess-1",
		event.NewSystemPrompt(1, "sess-1", "prompt", nil),
		event.NewMessage(2, "sess-1", "user", "list files"),
		act,
		event.NewObservation(4, "sess-1", act.ActionID, "ok", event.StatusSuccess),
	)

	state, err := Replay(context.Background(), store, nil)
	require.NoError(t, err)

	assert.Equal(t, "sess-1", state.SessionID())
	assert.Equal(t, 4, state.Len())
	assert.Equal(t, uint64(4), state.MaxSeq())
	for i, ev := range state.Events() {
		assert.Equal(t, uint64(i+1), ev.Seq())
	}

	obs, ok := state.Observation(act.ActionID)
	require.True(t, ok)
	assert.Equal(t, event.StatusSuccess, obs.Status)
	_, ok = state.Action(act.ActionID)
	assert.True(t, ok)
}

func TestReplayEqualsDirectFold(t *testing.T) {
	root := t.TempDir()
	act := event.NewAction(2, "sess-1", "file_editor", nil)
	events := []event.Event{
		event.NewMessage(1, "sess-1", "user", "go"),
		act,
		event.NewObservation(3, "sess-1", act.ActionID, nil, event.StatusError),
	}
	store := seedSession(t, root, "sess-1", events...)

	want := NewState("sess-1")
	for _, ev := range events {
		want.Apply(ev)
	}

	got, err := Replay(context.Background(), store, nil)
	require.NoError(t, err)
	assert.Equal(t, want.Len(), got.Len())
	assert.Equal(t, want.MaxSeq(), got.MaxSeq())
	for i := range events {
		assert.Equal(t, want.Events()[i].Seq(), got.Events()[i].Seq())
		assert.Equal(t, want.Events()[i].Kind(), got.Events()[i].Kind())
	}
}

func TestReplayIsIdempotent(t *testing.T) {
	root := t.TempDir()
	store := seedSession(t, root, "sess-1",
		event.NewMessage(1, "sess-1", "user", "hello"),
		event.NewMessage(2, "sess-1", "agent", "hi"),
	)

	first, err := Replay(context.Background(), store, nil)
	require.NoError(t, err)
	second, err := Replay(context.Background(), store, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Events(), second.Events())
	assert.Equal(t, first.MaxSeq(), second.MaxSeq())
}

func TestReplayColdSession(t *testing.T) {
	store, err := eventlog.Open(t.TempDir(), "fresh")
	require.NoError(t, err)

	state, err := Replay(context.Background(), store, nil)
	require.NoError(t, err)
	assert.Zero(t, state.Len())
	assert.Zero(t, state.MaxSeq())
}

func TestReplayCorruptEventIsFatal(t *testing.T) {
	root := t.TempDir()
	store := seedSession(t, root, "sess-1",
		event.NewMessage(1, "sess-1", "user", "hello"),
	)

	// Hand-plant a file that matches the grammar but holds garbage.
	bad := filepath.Join(store.Dir(), eventlog.Filename(2, event.KindMessage))
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))

	_, err := Replay(context.Background(), store, nil)
	require.Error(t, err)

	var corrupt *CorruptEventError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, uint64(2), corrupt.Seq)
	assert.Equal(t, "sess-1", corrupt.SessionID)
}

func TestReplayDetectsFilenamePayloadMismatch(t *testing.T) {
	root := t.TempDir()
	store := seedSession(t, root, "sess-1",
		event.NewMessage(1, "sess-1", "user", "hello"),
	)

	// A MessageEvent payload under an ActionEvent filename.
	payload, err := event.Marshal(event.NewMessage(2, "sess-1", "user", "mislabeled"))
	require.NoError(t, err)
	bad := filepath.Join(store.Dir(), eventlog.Filename(2, event.KindAction))
	require.NoError(t, os.WriteFile(bad, payload, 0644))

	_, err = Replay(context.Background(), store, nil)
	var corrupt *CorruptEventError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, uint64(2), corrupt.Seq)
}

func TestReplayDetectsSequenceGap(t *testing.T) {
	root := t.TempDir()
	store, err := eventlog.Open(root, "sess-1")
	require.NoError(t, err)

	// Files planted with a hole at seq 2.
	for _, seq := range []uint64{1, 3} {
		payload, err := event.Marshal(event.NewMessage(seq, "sess-1", "user", "x"))
		require.NoError(t, err)
		path := filepath.Join(store.Dir(), eventlog.Filename(seq, event.KindMessage))
		require.NoError(t, os.WriteFile(path, payload, 0644))
	}

	_, err = Replay(context.Background(), store, nil)
	var corrupt *CorruptEventError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, uint64(3), corrupt.Seq)
}

func TestReplayAll(t *testing.T) {
	root := t.TempDir()
	seedSession(t, root, "sess-a", event.NewMessage(1, "sess-a", "user", "a"))
	seedSession(t, root, "sess-b",
		event.NewMessage(1, "sess-b", "user", "b"),
		event.NewMessage(2, "sess-b", "agent", "bb"),
	)

	states, err := All(context.Background(), root, []string{"sess-b", "sess-a"}, 2, nil)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, 1, states["sess-a"].Len())
	assert.Equal(t, 2, states["sess-b"].Len())
}

func TestReplayAllPropagatesCorruption(t *testing.T) {
	root := t.TempDir()
	store := seedSession(t, root, "sess-a", event.NewMessage(1, "sess-a", "user", "a"))
	bad := filepath.Join(store.Dir(), eventlog.Filename(2, event.KindMessage))
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0644))

	_, err := All(context.Background(), root, []string{"sess-a"}, 0, nil)
	var corrupt *CorruptEventError
	require.ErrorAs(t, err, &corrupt)
}
