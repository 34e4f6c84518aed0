// Package sink delivers detected events to their destination.
package sink

import (
	"context"
	"time"

	"github.com/Hara602/fileSentry/internal/model"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single webservice call
const DefaultTimeout = 3 * time.Second

// Sink is where dispatched events go
type Sink interface {
	Notify(ctx context.Context, event model.Event) error
}

// New picks the webservice sink when an address and port are configured, and
// the local sink otherwise. cfg must already be validated.
func New(cfg model.SinkConfig, logger *zap.Logger) Sink {
	if cfg.Remote() {
		return NewRemoteHTTPSink(cfg, nil)
	}
	return NewLocalSink(logger)
}

// LocalSink records events in the log only
type LocalSink struct {
	logger *zap.Logger
}

func NewLocalSink(logger *zap.Logger) *LocalSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalSink{logger: logger}
}

func (s *LocalSink) Notify(_ context.Context, event model.Event) error {
	s.logger.Info("📂 File event",
		zap.Stringer("kind", event.Kind),
		zap.String("path", event.Path),
		zap.Time("observed_at", event.ObservedAt),
	)
	return nil
}
