// Package watcher runs the detection loop: snapshot, detect, dispatch on every tick.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Hara602/fileSentry/internal/model"
	"github.com/Hara602/fileSentry/internal/monitor"
	"github.com/Hara602/fileSentry/internal/sink"
	"github.com/Hara602/fileSentry/internal/snapshot"
	"github.com/Hara602/fileSentry/internal/sysutil"
	"go.uber.org/zap"
)

// DefaultInterval is the detection cadence when none is configured
const DefaultInterval = 5 * time.Second

// State is the lifecycle stage of a Watcher
type State int32

const (
	Idle State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// ErrNotIdle is returned by Run on a watcher that was already started. A
// stopped watcher cannot be restarted.
var ErrNotIdle = errors.New("watcher already started")

// Dispatcher receives each detection cycle's events
type Dispatcher interface {
	DispatchBatch(ctx context.Context, events []model.Event)
	Wait(timeout time.Duration) bool
}

type Config struct {
	Target   model.WatchTarget
	Sink     model.SinkConfig
	Interval time.Duration
	// ShutdownTimeout bounds the wait for in-flight deliveries on stop.
	// Defaults to the sink timeout.
	ShutdownTimeout time.Duration
}

// Watcher supervises one watch target for the life of the process
type Watcher struct {
	cfg        Config
	monitor    monitor.FileMonitor
	dispatcher Dispatcher
	logger     *zap.Logger

	state atomic.Int32
	ticks atomic.Uint64
}

func New(cfg Config, mon monitor.FileMonitor, dispatcher Dispatcher, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = cfg.Sink.Timeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = sink.DefaultTimeout
	}
	return &Watcher{
		cfg:        cfg,
		monitor:    mon,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (w *Watcher) State() State {
	return State(w.state.Load())
}

// Ticks is the number of detection cycles run so far, failed ones included
func (w *Watcher) Ticks() uint64 {
	return w.ticks.Load()
}

// Run validates the configuration, records the initial state of the tree and
// then detects changes every interval until ctx is cancelled. Errors after
// startup are logged, never returned. Run returns nil after a clean shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrNotIdle
	}
	if err := w.start(ctx); err != nil {
		_ = w.monitor.Close()
		w.state.Store(int32(Stopped))
		return err
	}

	w.logger.Info("👀 Monitoring started",
		zap.String("path", w.cfg.Target.Root),
		zap.Bool("recursive", w.cfg.Target.Recursive),
		zap.Duration("interval", w.cfg.Interval))

	// a tick that has started runs to completion, and deliveries are bounded
	// by the sink timeout rather than cut off at shutdown
	work := context.WithoutCancel(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil
		case <-ticker.C:
			w.tick(work)
		}
	}
}

func (w *Watcher) start(ctx context.Context) error {
	if err := w.cfg.Target.Validate(); err != nil {
		return err
	}
	if err := w.cfg.Sink.Validate(); err != nil {
		return err
	}
	if err := sysutil.CheckReadable(w.cfg.Target.Root); err != nil {
		return &snapshot.AccessError{Root: w.cfg.Target.Root, Err: err}
	}
	if err := w.monitor.Start(ctx); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	return nil
}

func (w *Watcher) tick(ctx context.Context) {
	defer w.ticks.Add(1)

	events, err := w.monitor.Detect(ctx)
	if err != nil {
		w.logger.Warn("detection cycle failed, skipping", zap.Error(err))
		return
	}
	if len(events) == 0 {
		return
	}
	w.logger.Debug("detected changes", zap.Int("events", len(events)))
	w.dispatcher.DispatchBatch(ctx, events)
}

func (w *Watcher) stop() {
	w.state.Store(int32(Stopping))
	w.logger.Info("Shutting down...")

	if !w.dispatcher.Wait(w.cfg.ShutdownTimeout) {
		w.logger.Warn("gave up waiting for in-flight deliveries",
			zap.Duration("timeout", w.cfg.ShutdownTimeout))
	}
	if err := w.monitor.Close(); err != nil {
		w.logger.Warn("closing monitor failed", zap.Error(err))
	}

	w.state.Store(int32(Stopped))
	w.logger.Info("Observer stopped")
}
