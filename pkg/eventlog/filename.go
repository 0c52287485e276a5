package eventlog

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/odvcencio/scribe/pkg/event"
)

// Event filenames follow a fixed grammar: a zero-padded sequence number and
// the event kind, so that lexicographic order equals sequence order and the
// index never has to open a payload to order it. Treat this as a versioned
// contract; all parsing goes through ParseFilename.
//
//	event-00042-ActionEvent.json
const (
	filePrefix    = "event-"
	fileExtension = ".json"
	seqPadWidth   = 5
)

var filenamePattern = regexp.MustCompile(`^event-(\d+)-([A-Za-z]+)\.json$`)

// Filename returns the canonical file name for an event's sequence and kind.
// It depends on nothing else; payload content never influences naming.
func Filename(seq uint64, kind event.Kind) string {
	return fmt.Sprintf("%s%0*d-%s%s", filePrefix, seqPadWidth, seq, kind, fileExtension)
}

// ParseFilename parses a directory entry into (seq, kind). The second return
// reports whether the name matches the grammar at all; foreign files are the
// caller's business to skip. Padding wider than the canonical width is
// accepted so logs that outgrow it still decode.
func ParseFilename(name string) (uint64, event.Kind, bool) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, "", false
	}
	seq, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, "", false
	}
	kind := event.Kind(m[2])
	if !kind.IsValid() {
		return 0, "", false
	}
	return seq, kind, true
}
