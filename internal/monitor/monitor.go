package monitor

import (
	"context"
	"fmt"

	"github.com/Hara602/fileSentry/internal/model"
	"github.com/Hara602/fileSentry/internal/snapshot"
	"go.uber.org/zap"
)

// Backend names a change detection strategy
type Backend string

const (
	// BackendPoll diffs a fresh snapshot on every tick
	BackendPoll Backend = "poll"
	// BackendNotify drains OS change notifications on every tick
	BackendNotify Backend = "notify"
)

// FileMonitor turns changes under a watch target into events, one detection cycle per Detect call
type FileMonitor interface {
	// Start records the initial state. Entries present at start produce no events.
	Start(ctx context.Context) error
	// Detect returns the changes since the previous cycle, in detection order
	Detect(ctx context.Context) ([]model.Event, error)
	Close() error
}

func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case "", BackendPoll:
		return BackendPoll, nil
	case BackendNotify:
		return BackendNotify, nil
	}
	return "", fmt.Errorf("unknown detection backend %q (want %q or %q)", name, BackendPoll, BackendNotify)
}

func New(backend Backend, target model.WatchTarget, logger *zap.Logger) (FileMonitor, error) {
	switch backend {
	case "", BackendPoll:
		return NewPoller(snapshot.New(target, logger)), nil
	case BackendNotify:
		return NewNotifier(target, logger)
	}
	return nil, fmt.Errorf("unknown detection backend %q", backend)
}
