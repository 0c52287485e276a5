// Package watch tails a session's event directory, surfacing newly persisted
// events to subscribers without polling. Because the store renames completed
// files into place, a create notification for a grammar-matching name always
// refers to a fully written event.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/oklog/ulid/v2"

	"github.com/odvcencio/scribe/pkg/eventlog"
	"github.com/odvcencio/scribe/pkg/logging"
)

// Handler receives refs for newly persisted events.
type Handler func(ref eventlog.Ref)

// Subscription binds an ID to a handler.
type Subscription struct {
	ID      string
	Handler Handler
}

// Watcher follows one session's event directory.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	log     *logging.Logger

	mu            sync.RWMutex
	subscriptions map[string]*Subscription

	closeOnce sync.Once
	done      chan struct{}
}

// New starts watching a session's event directory.
func New(dir string, log *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:           dir,
		watcher:       fw,
		log:           log,
		subscriptions: make(map[string]*Subscription),
		done:          make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Subscribe registers a handler for newly persisted events.
func (w *Watcher) Subscribe(handler Handler) string {
	if w == nil || handler == nil {
		return ""
	}
	id := ulid.Make().String()
	w.mu.Lock()
	w.subscriptions[id] = &Subscription{ID: id, Handler: handler}
	w.mu.Unlock()
	return id
}

// Unsubscribe removes a subscription.
func (w *Watcher) Unsubscribe(id string) {
	if w == nil || id == "" {
		return
	}
	w.mu.Lock()
	delete(w.subscriptions, id)
	w.mu.Unlock()
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	if w == nil {
		return nil
	}
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Renames into place arrive as create notifications for the
			// final name; writes to temp files never match the grammar.
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			seq, kind, matched := eventlog.ParseFilename(name)
			if !matched {
				continue
			}
			w.dispatch(eventlog.Ref{Seq: seq, Kind: kind, Path: ev.Name})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn(logging.CategoryWatch, "watch_error", err.Error(), nil)
		}
	}
}

func (w *Watcher) dispatch(ref eventlog.Ref) {
	w.mu.RLock()
	subs := make([]*Subscription, 0, len(w.subscriptions))
	for _, sub := range w.subscriptions {
		subs = append(subs, sub)
	}
	w.mu.RUnlock()

	for _, sub := range subs {
		sub.Handler(ref)
	}
}
