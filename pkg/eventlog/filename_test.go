package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/scribe/pkg/event"
)

func TestFilenameRoundTrip(t *testing.T) {
	for _, kind := range event.Kinds() {
		name := Filename(42, kind)
		seq, parsed, ok := ParseFilename(name)
		require.True(t, ok, "%s", name)
		assert.Equal(t, uint64(42), seq)
		assert.Equal(t, kind, parsed)
	}
}

func TestFilenameIsZeroPadded(t *testing.T) {
	assert.Equal(t, "event-00007-ActionEvent.json", Filename(7, event.KindAction))
	assert.Equal(t, "event-99999-MessageEvent.json", Filename(99999, event.KindMessage))
	// Beyond the pad width the number simply grows; ParseFilename still accepts it.
	seq, _, ok := ParseFilename(Filename(123456, event.KindMessage))
	require.True(t, ok)
	assert.Equal(t, uint64(123456), seq)
}

func TestParseFilenameRejectsForeignFiles(t *testing.T) {
	for _, name := range []string{
		lockFileName,
		".tmp-event-12345",
		"event-00001-UnknownEvent.json",
		"event-abc-ActionEvent.json",
		"event-00001-ActionEvent.json.bak",
		"base_state.json",
		"notes.txt",
		"",
	} {
		_, _, ok := ParseFilename(name)
		assert.False(t, ok, "%q should not parse", name)
	}
}
