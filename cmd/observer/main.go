package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Hara602/fileSentry/internal/analysis"
	"github.com/Hara602/fileSentry/internal/config"
	"github.com/Hara602/fileSentry/internal/dispatch"
	"github.com/Hara602/fileSentry/internal/monitor"
	"github.com/Hara602/fileSentry/internal/sink"
	"github.com/Hara602/fileSentry/internal/sysutil"
	"github.com/Hara602/fileSentry/internal/watcher"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	exitCodeSuccess = 0
	exitCodeUsage   = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, errOut io.Writer) int {
	cfg, err := config.Parse(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitCodeSuccess
		}
		return exitCodeUsage
	}

	logger, err := sysutil.NewLogger(sysutil.LogOptions{Level: cfg.LogLevel, Output: cfg.LogOutput})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return exitCodeUsage
	}
	defer logger.Sync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("Signal received", zap.Stringer("signal", sig))
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	eg.Go(func() error {
		if code := serve(gctx, cfg, logger); code != exitCodeSuccess {
			return errStartup
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return exitCodeUsage
	}
	return exitCodeSuccess
}

var errStartup = errors.New("watcher failed to start")

// serve runs the watcher until ctx is cancelled
func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) int {
	logger.Info("🛡️ File observer starting",
		zap.String("path", cfg.Target.Root),
		zap.Bool("recursive", cfg.Target.Recursive),
		zap.String("backend", string(cfg.Backend)))
	if cfg.Sink.Remote() {
		logger.Info("Sending events to webservice",
			zap.String("address", cfg.Sink.Address),
			zap.Int("port", cfg.Sink.Port))
	} else {
		logger.Info("Webservice disabled, events are only logged")
	}

	mon, err := monitor.New(cfg.Backend, cfg.Target, logger.Named("monitor"))
	if err != nil {
		logger.Error("Monitor init failed", zap.Error(err), zap.Bool("critical", true))
		return exitCodeUsage
	}
	dispatcher := dispatch.New(
		sink.New(cfg.Sink, logger.Named("sink")),
		logger.Named("dispatch"),
		dispatch.WithInspector(analysis.NewTypeInspector()),
	)
	w := watcher.New(watcher.Config{
		Target:   cfg.Target,
		Sink:     cfg.Sink,
		Interval: cfg.Interval,
	}, mon, dispatcher, logger.Named("watcher"))

	if err := w.Run(ctx); err != nil {
		logger.Error("Watcher failed", zap.Error(err), zap.Bool("critical", true))
		return exitCodeUsage
	}
	return exitCodeSuccess
}
