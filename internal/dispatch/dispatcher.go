// Package dispatch forwards file events to a sink without blocking detection.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/Hara602/fileSentry/internal/analysis"
	"github.com/Hara602/fileSentry/internal/model"
	"github.com/Hara602/fileSentry/internal/sink"
	"go.uber.org/zap"
)

// Outcome is what happened to one dispatched event
type Outcome uint8

const (
	// Dropped events were directory events and never reached the sink
	Dropped Outcome = iota
	Delivered
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Dropped:
		return "dropped"
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Inspector describes the content of a created file
type Inspector interface {
	Inspect(path string) (*analysis.Result, error)
}

// Dispatcher forwards file events to a sink. Each detection cycle is
// dispatched on its own goroutine, in detection order.
type Dispatcher struct {
	sink      sink.Sink
	inspector Inspector
	logger    *zap.Logger

	inflight sync.WaitGroup
}

type Option func(d *Dispatcher)

// WithInspector enriches created-file log lines with their content type
func WithInspector(inspector Inspector) Option {
	return func(d *Dispatcher) {
		d.inspector = inspector
	}
}

func New(s sink.Sink, logger *zap.Logger, options ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{sink: s, logger: logger}
	for _, option := range options {
		option(d)
	}
	return d
}

// Dispatch delivers one event and reports the outcome. It never returns an
// error: failures are logged and the event is dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.Event) Outcome {
	if event.IsDirectory {
		d.logger.Debug("ignoring directory event",
			zap.Stringer("kind", event.Kind),
			zap.String("path", event.Path))
		return Dropped
	}

	fields := []zap.Field{
		zap.Stringer("kind", event.Kind),
		zap.String("path", event.Path),
	}
	if event.Kind == model.Created && d.inspector != nil {
		fields = append(fields, d.describe(event.Path)...)
	}
	d.logger.Info("received file event", fields...)

	if err := d.sink.Notify(ctx, event); err != nil {
		d.logger.Error("❌ event delivery failed", append(fields, zap.Error(err))...)
		return Failed
	}
	d.logger.Debug("✅ event delivered", fields...)
	return Delivered
}

func (d *Dispatcher) describe(path string) []zap.Field {
	result, err := d.inspector.Inspect(path)
	if err != nil {
		// the file may be gone already
		d.logger.Debug("content inspection failed", zap.String("path", path), zap.Error(err))
		return nil
	}
	fields := []zap.Field{zap.String("content_type", result.RealExt)}
	if result.IsMasquerade {
		d.logger.Warn("🚨 file content does not match its extension",
			zap.String("path", path),
			zap.String("declared", result.DeclaredExt),
			zap.String("real", result.RealExt))
		fields = append(fields, zap.Bool("masquerade", true))
	}
	return fields
}

// DispatchBatch dispatches one detection cycle in the background and returns
// immediately. ctx bounds the deliveries, not the call.
func (d *Dispatcher) DispatchBatch(ctx context.Context, events []model.Event) {
	if len(events) == 0 {
		return
	}
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		for _, event := range events {
			d.Dispatch(ctx, event)
		}
	}()
}

// Wait blocks until every in-flight batch is done or timeout elapses. It
// reports whether all batches finished.
func (d *Dispatcher) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
