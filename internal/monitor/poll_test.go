package monitor_test

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/Hara602/fileSentry/internal/model"
	"github.com/Hara602/fileSentry/internal/monitor"
	"github.com/Hara602/fileSentry/internal/snapshot"
	"github.com/spiretechnology/go-memfs"
	"github.com/stretchr/testify/require"
)

const root = "/watched"

type change struct {
	Kind  model.Kind
	Path  string
	IsDir bool
}

func changes(events []model.Event) []change {
	var out []change
	for _, ev := range events {
		out = append(out, change{Kind: ev.Kind, Path: ev.Path, IsDir: ev.IsDirectory})
	}
	return out
}

func detect(t *testing.T, m monitor.FileMonitor) []change {
	t.Helper()
	events, err := m.Detect(context.Background())
	require.NoError(t, err, "error detecting")
	return changes(events)
}

// flakyFS fails to list the root while broken is set
type flakyFS struct {
	memfs.FS
	broken *bool
}

func (f flakyFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if *f.broken {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrPermission}
	}
	return fs.ReadDir(f.FS, name)
}

func TestPoller(t *testing.T) {
	t.Run("detects added and removed files", func(t *testing.T) {
		fsys := memfs.FS{
			"a.txt": memfs.File("a"),
		}
		p := monitor.NewPoller(snapshot.NewFS(fsys, model.WatchTarget{Root: root, Recursive: true}, nil))
		require.NoError(t, p.Start(context.Background()))

		// Existing files are the baseline, not events
		require.Empty(t, detect(t, p))

		fsys["b.txt"] = memfs.File("b")
		require.Equal(t, []change{
			{Kind: model.Created, Path: filepath.Join(root, "b.txt")},
		}, detect(t, p))

		delete(fsys, "a.txt")
		require.Equal(t, []change{
			{Kind: model.Deleted, Path: filepath.Join(root, "a.txt")},
		}, detect(t, p))
	})

	t.Run("consecutive detections with no changes", func(t *testing.T) {
		fsys := memfs.FS{
			"hello/foo/a":       memfs.File(""),
			"hello/foo/bar/baz": memfs.Dir{},
		}
		p := monitor.NewPoller(snapshot.NewFS(fsys, model.WatchTarget{Root: root, Recursive: true}, nil))
		require.NoError(t, p.Start(context.Background()))
		require.Empty(t, detect(t, p))
		require.Empty(t, detect(t, p))
	})

	t.Run("classification change", func(t *testing.T) {
		fsys := memfs.FS{
			"x": memfs.File("x"),
		}
		p := monitor.NewPoller(snapshot.NewFS(fsys, model.WatchTarget{Root: root, Recursive: true}, nil))
		require.NoError(t, p.Start(context.Background()))

		delete(fsys, "x")
		fsys["x"] = memfs.Dir{}
		require.Equal(t, []change{
			{Kind: model.Deleted, Path: filepath.Join(root, "x"), IsDir: false},
			{Kind: model.Created, Path: filepath.Join(root, "x"), IsDir: true},
		}, detect(t, p))
	})

	t.Run("nested files are ignored when not recursive", func(t *testing.T) {
		fsys := memfs.FS{
			"sub/a": memfs.File("a"),
		}
		p := monitor.NewPoller(snapshot.NewFS(fsys, model.WatchTarget{Root: root}, nil))
		require.NoError(t, p.Start(context.Background()))

		fsys["sub/b"] = memfs.File("b")
		fsys["top"] = memfs.File("t")
		require.Equal(t, []change{
			{Kind: model.Created, Path: filepath.Join(root, "top")},
		}, detect(t, p))
	})

	t.Run("failed cycle keeps the baseline", func(t *testing.T) {
		broken := false
		fsys := flakyFS{FS: memfs.FS{"a.txt": memfs.File("a")}, broken: &broken}
		p := monitor.NewPoller(snapshot.NewFS(fsys, model.WatchTarget{Root: root, Recursive: true}, nil))
		require.NoError(t, p.Start(context.Background()))

		broken = true
		fsys.FS["b.txt"] = memfs.File("b")
		_, err := p.Detect(context.Background())
		var accessErr *snapshot.AccessError
		require.True(t, errors.As(err, &accessErr), "expected access error, got %v", err)

		broken = false
		require.Equal(t, []change{
			{Kind: model.Created, Path: filepath.Join(root, "b.txt")},
		}, detect(t, p))
	})

	t.Run("start fails on unreadable root", func(t *testing.T) {
		broken := true
		fsys := flakyFS{FS: memfs.FS{}, broken: &broken}
		p := monitor.NewPoller(snapshot.NewFS(fsys, model.WatchTarget{Root: root}, nil))
		require.Error(t, p.Start(context.Background()))
	})
}

func TestParseBackend(t *testing.T) {
	b, err := monitor.ParseBackend("")
	require.NoError(t, err)
	require.Equal(t, monitor.BackendPoll, b)

	b, err = monitor.ParseBackend("notify")
	require.NoError(t, err)
	require.Equal(t, monitor.BackendNotify, b)

	_, err = monitor.ParseBackend("inotify")
	require.Error(t, err)
}
