// Package snapshot records which paths exist under a watched root.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/Hara602/fileSentry/internal/model"
	"go.uber.org/zap"
)

// Entry is the classification recorded for a path
type Entry struct {
	IsDir bool
}

// Snapshot maps absolute paths to their classification at one point in time
type Snapshot map[string]Entry

// AccessError means the root itself could not be listed
type AccessError struct {
	Root string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot read watch root %q: %v", e.Root, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Snapshotter enumerates a watch target. The tree is read through fsys, and
// paths in the snapshot are reported under Root.
type Snapshotter struct {
	fsys      fs.FS
	root      string
	recursive bool
	logger    *zap.Logger
}

// New creates a snapshotter over the real file system
func New(target model.WatchTarget, logger *zap.Logger) *Snapshotter {
	return NewFS(os.DirFS(target.Root), target, logger)
}

// NewFS creates a snapshotter that reads fsys, which must be rooted at target.Root
func NewFS(fsys fs.FS, target model.WatchTarget, logger *zap.Logger) *Snapshotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{
		fsys:      fsys,
		root:      target.Root,
		recursive: target.Recursive,
		logger:    logger,
	}
}

// Take lists the tree once
func (s *Snapshotter) Take(ctx context.Context) (Snapshot, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, &AccessError{Root: s.root, Err: err}
	}
	snap := make(Snapshot)
	if err := s.record(ctx, snap, ".", entries); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Snapshotter) record(ctx context.Context, snap Snapshot, dir string, entries []fs.DirEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, entry := range entries {
		rel := path.Join(dir, entry.Name())
		snap[s.abs(rel)] = Entry{IsDir: entry.IsDir()}
		if !entry.IsDir() || !s.recursive {
			continue
		}

		children, err := fs.ReadDir(s.fsys, rel)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// removed while we were listing its parent
				delete(snap, s.abs(rel))
				continue
			}
			s.logger.Debug("skipping unreadable directory", zap.String("path", s.abs(rel)), zap.Error(err))
			continue
		}
		if err := s.record(ctx, snap, rel, children); err != nil {
			return err
		}
	}
	return nil
}

func (s *Snapshotter) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}
