package monitor

import (
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Hara602/fileSentry/internal/model"
	"github.com/Hara602/fileSentry/internal/snapshot"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Notifier detects changes from OS notifications. Notifications are buffered
// as they arrive and turned into events when Detect drains them, so the
// cadence matches the poller. Unlike the poller it also reports short-lived
// files that appear and vanish within one interval.
type Notifier struct {
	target model.WatchTarget
	logger *zap.Logger
	fsw    *fsnotify.Watcher

	mu      sync.Mutex
	pending []fsnotify.Event
	errs    []error

	// known is only touched by Start and Detect
	known snapshot.Snapshot

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewNotifier(target model.WatchTarget, logger *zap.Logger) (*Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Notifier{
		target: target,
		logger: logger,
		fsw:    fsw,
		known:  make(snapshot.Snapshot),
		done:   make(chan struct{}),
	}, nil
}

func (n *Notifier) Start(ctx context.Context) error {
	// watch before scanning so nothing created during the scan is lost
	if err := n.fsw.Add(n.target.Root); err != nil {
		return &snapshot.AccessError{Root: n.target.Root, Err: err}
	}
	n.wg.Add(1)
	go n.forward()

	snap, err := snapshot.New(n.target, n.logger).Take(ctx)
	if err != nil {
		return err
	}
	n.known = snap
	if n.target.Recursive {
		for p, entry := range snap {
			if entry.IsDir {
				n.watch(p)
			}
		}
	}
	return nil
}

func (n *Notifier) forward() {
	defer n.wg.Done()
	for {
		select {
		case ev, ok := <-n.fsw.Events:
			if !ok {
				return
			}
			n.mu.Lock()
			n.pending = append(n.pending, ev)
			n.mu.Unlock()
		case err, ok := <-n.fsw.Errors:
			if !ok {
				return
			}
			n.mu.Lock()
			n.errs = append(n.errs, err)
			n.mu.Unlock()
		case <-n.done:
			return
		}
	}
}

func (n *Notifier) Detect(ctx context.Context) ([]model.Event, error) {
	n.mu.Lock()
	pending, errs := n.pending, n.errs
	n.pending, n.errs = nil, nil
	n.mu.Unlock()

	now := time.Now()
	var events []model.Event
	for _, ev := range pending {
		switch {
		case ev.Has(fsnotify.Create):
			events = n.created(ctx, ev.Name, now, events)
		case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
			events = n.forget(ev.Name, now, events)
		}
	}
	if len(errs) == 0 {
		return events, nil
	}

	// The kernel queue may have overflowed, so the buffered notifications
	// cannot be trusted to be complete. Rescan and diff against what we know.
	n.logger.Warn("notification backend reported errors, rescanning", zap.Error(errors.Join(errs...)))
	fresh, err := snapshot.New(n.target, n.logger).Take(ctx)
	if err != nil {
		return events, err
	}
	events = append(events, Diff(n.known, fresh, now)...)
	n.known = fresh
	if n.target.Recursive {
		for p, entry := range fresh {
			if entry.IsDir {
				n.watch(p)
			}
		}
	}
	return events, nil
}

func (n *Notifier) created(ctx context.Context, name string, at time.Time, events []model.Event) []model.Event {
	if !n.inScope(name) {
		return events
	}
	info, err := os.Lstat(name)
	if err != nil {
		// already gone again
		return events
	}
	isDir := info.IsDir()
	if old, ok := n.known[name]; ok {
		if old.IsDir == isDir {
			return events
		}
		events = n.forget(name, at, events)
	}

	n.known[name] = snapshot.Entry{IsDir: isDir}
	events = append(events, model.Event{Kind: model.Created, Path: name, IsDirectory: isDir, ObservedAt: at})
	if !isDir || !n.target.Recursive {
		return events
	}

	// pick up whatever landed in the directory before its watch was in place
	n.watch(name)
	sub, err := snapshot.New(model.WatchTarget{Root: name, Recursive: true}, n.logger).Take(ctx)
	if err != nil {
		n.logger.Debug("scan of new directory failed", zap.String("path", name), zap.Error(err))
		return events
	}
	for _, p := range slices.Sorted(maps.Keys(sub)) {
		if _, ok := n.known[p]; ok {
			continue
		}
		entry := sub[p]
		n.known[p] = entry
		events = append(events, model.Event{Kind: model.Created, Path: p, IsDirectory: entry.IsDir, ObservedAt: at})
		if entry.IsDir {
			n.watch(p)
		}
	}
	return events
}

// forget reports name as deleted, along with everything known beneath it
func (n *Notifier) forget(name string, at time.Time, events []model.Event) []model.Event {
	entry, ok := n.known[name]
	if !ok {
		return events
	}
	delete(n.known, name)
	events = append(events, model.Event{Kind: model.Deleted, Path: name, IsDirectory: entry.IsDir, ObservedAt: at})
	if !entry.IsDir {
		return events
	}

	_ = n.fsw.Remove(name)
	prefix := name + string(filepath.Separator)
	var children []string
	for p := range n.known {
		if strings.HasPrefix(p, prefix) {
			children = append(children, p)
		}
	}
	slices.Sort(children)
	for _, p := range children {
		child := n.known[p]
		delete(n.known, p)
		events = append(events, model.Event{Kind: model.Deleted, Path: p, IsDirectory: child.IsDir, ObservedAt: at})
	}
	return events
}

func (n *Notifier) inScope(name string) bool {
	if name == n.target.Root {
		return false
	}
	if n.target.Recursive {
		return strings.HasPrefix(name, n.target.Root+string(filepath.Separator))
	}
	return filepath.Dir(name) == n.target.Root
}

func (n *Notifier) watch(dir string) {
	if err := n.fsw.Add(dir); err != nil {
		n.logger.Debug("cannot watch directory", zap.String("path", dir), zap.Error(err))
	}
}

func (n *Notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.done)
		err = n.fsw.Close()
		n.wg.Wait()
	})
	return err
}
