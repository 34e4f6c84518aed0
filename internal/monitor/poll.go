package monitor

import (
	"context"
	"time"

	"github.com/Hara602/fileSentry/internal/model"
	"github.com/Hara602/fileSentry/internal/snapshot"
)

// Snapshotter is the tree sampler a Poller diffs
type Snapshotter interface {
	Take(ctx context.Context) (snapshot.Snapshot, error)
}

// Poller detects changes by diffing successive snapshots. It is not safe for
// concurrent use; the supervisor loop is its only caller.
type Poller struct {
	snapshotter Snapshotter
	prev        snapshot.Snapshot
	now         func() time.Time
}

func NewPoller(s Snapshotter) *Poller {
	return &Poller{snapshotter: s, now: time.Now}
}

func (p *Poller) Start(ctx context.Context) error {
	snap, err := p.snapshotter.Take(ctx)
	if err != nil {
		return err
	}
	p.prev = snap
	return nil
}

// Detect samples the tree and diffs it against the last good snapshot. On
// error the baseline is kept so the next cycle diffs against it.
func (p *Poller) Detect(ctx context.Context) ([]model.Event, error) {
	snap, err := p.snapshotter.Take(ctx)
	if err != nil {
		return nil, err
	}
	events := Diff(p.prev, snap, p.now())
	p.prev = snap
	return events, nil
}

func (p *Poller) Close() error {
	p.prev = nil
	return nil
}
