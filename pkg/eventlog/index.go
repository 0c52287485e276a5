package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/odvcencio/scribe/pkg/event"
	"github.com/odvcencio/scribe/pkg/logging"
)

// Ref is a cheap, metadata-only handle to one persisted event. Building a Ref
// never opens the payload.
type Ref struct {
	Seq  uint64
	Kind event.Kind
	Path string
}

// RebuildIndex enumerates a session's event directory and returns refs sorted
// ascending by sequence, regardless of the directory listing's native order.
// Entries that do not match the filename grammar (the lock file, temp files,
// anything foreign) are logged and skipped; one stray file never aborts the
// rebuild. A missing directory is a cold-start session, not an error.
func RebuildIndex(dir string, log *logging.Logger) ([]Ref, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []Ref{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list event directory: %w", err)
	}

	refs := make([]Ref, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		seq, kind, ok := ParseFilename(name)
		if !ok {
			if name != lockFileName {
				log.Debug(logging.CategoryIndex, "skip_foreign_file", "file does not match event filename grammar", map[string]any{
					"file": name,
				})
			}
			continue
		}
		refs = append(refs, Ref{
			Seq:  seq,
			Kind: kind,
			Path: filepath.Join(dir, name),
		})
	}

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Seq < refs[j].Seq
	})
	return refs, nil
}
