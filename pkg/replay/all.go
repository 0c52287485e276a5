package replay

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/scribe/pkg/eventlog"
	"github.com/odvcencio/scribe/pkg/logging"
)

// DefaultConcurrency bounds how many sessions All replays at once.
const DefaultConcurrency = 4

// All replays several independent sessions concurrently and returns their
// states keyed by session ID. Sessions share no state, so they can be rebuilt
// in parallel; concurrency is bounded. The first failure cancels the rest.
func All(ctx context.Context, root string, sessionIDs []string, concurrency int, log *logging.Logger) (map[string]*State, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var mu sync.Mutex
	states := make(map[string]*State, len(sessionIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	// Deterministic dispatch order for reproducible logs.
	ids := append([]string(nil), sessionIDs...)
	sort.Strings(ids)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			store, err := eventlog.Open(root, id, eventlog.WithLogger(log))
			if err != nil {
				return err
			}
			state, err := Replay(ctx, store, log)
			if err != nil {
				return err
			}
			mu.Lock()
			states[id] = state
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}
