package snapshot_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/Hara602/fileSentry/internal/model"
	"github.com/Hara602/fileSentry/internal/snapshot"
	"github.com/spiretechnology/go-memfs"
	"github.com/stretchr/testify/require"
)

const root = "/watched"

// vanishingFS reports a directory in its parent listing that is gone by the time it is read
type vanishingFS struct {
	memfs.FS
	gone string
}

func (v vanishingFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == v.gone {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return fs.ReadDir(v.FS, name)
}

// deniedFS fails every directory read below the root
type deniedFS struct {
	memfs.FS
}

func (d deniedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrPermission}
	}
	return fs.ReadDir(d.FS, name)
}

func TestTake(t *testing.T) {
	t.Run("recursive", func(t *testing.T) {
		fsys := memfs.FS{
			"a.txt":       memfs.File("a"),
			"docs/b.txt":  memfs.File("b"),
			"docs/deep/c": memfs.File("c"),
			"docs/empty":  memfs.Dir{},
		}
		s := snapshot.NewFS(fsys, model.WatchTarget{Root: root, Recursive: true}, nil)

		snap, err := s.Take(context.Background())
		require.NoError(t, err)
		require.Equal(t, snapshot.Snapshot{
			filepath.Join(root, "a.txt"):             {IsDir: false},
			filepath.Join(root, "docs"):              {IsDir: true},
			filepath.Join(root, "docs", "b.txt"):     {IsDir: false},
			filepath.Join(root, "docs", "deep"):      {IsDir: true},
			filepath.Join(root, "docs", "deep", "c"): {IsDir: false},
			filepath.Join(root, "docs", "empty"):     {IsDir: true},
		}, snap)
	})

	t.Run("direct children only", func(t *testing.T) {
		fsys := memfs.FS{
			"a.txt":      memfs.File("a"),
			"docs/b.txt": memfs.File("b"),
		}
		s := snapshot.NewFS(fsys, model.WatchTarget{Root: root}, nil)

		snap, err := s.Take(context.Background())
		require.NoError(t, err)
		require.Equal(t, snapshot.Snapshot{
			filepath.Join(root, "a.txt"): {IsDir: false},
			filepath.Join(root, "docs"):  {IsDir: true},
		}, snap)
	})

	t.Run("directory vanishing mid-scan is absent", func(t *testing.T) {
		fsys := vanishingFS{
			FS: memfs.FS{
				"a.txt":      memfs.File("a"),
				"tmp/x.part": memfs.File("x"),
			},
			gone: "tmp",
		}
		s := snapshot.NewFS(fsys, model.WatchTarget{Root: root, Recursive: true}, nil)

		snap, err := s.Take(context.Background())
		require.NoError(t, err)
		require.Equal(t, snapshot.Snapshot{
			filepath.Join(root, "a.txt"): {IsDir: false},
		}, snap)
	})

	t.Run("unreadable subdirectory is kept without children", func(t *testing.T) {
		fsys := deniedFS{FS: memfs.FS{"private/key": memfs.File("k")}}
		s := snapshot.NewFS(fsys, model.WatchTarget{Root: root, Recursive: true}, nil)

		snap, err := s.Take(context.Background())
		require.NoError(t, err)
		require.Equal(t, snapshot.Snapshot{
			filepath.Join(root, "private"): {IsDir: true},
		}, snap)
	})

	t.Run("missing root is an access error", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing")
		s := snapshot.New(model.WatchTarget{Root: missing, Recursive: true}, nil)

		_, err := s.Take(context.Background())
		var accessErr *snapshot.AccessError
		require.True(t, errors.As(err, &accessErr), "expected access error, got %v", err)
		require.Equal(t, missing, accessErr.Root)
		require.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("real directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
		require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("b"), 0o644))
		s := snapshot.New(model.WatchTarget{Root: dir, Recursive: true}, nil)

		snap, err := s.Take(context.Background())
		require.NoError(t, err)
		require.Len(t, snap, 3)
		require.True(t, snap[filepath.Join(dir, "sub")].IsDir)
		require.Contains(t, snap, filepath.Join(dir, "sub", "b.txt"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := snapshot.NewFS(memfs.FS{"a": memfs.File("a")}, model.WatchTarget{Root: root}, nil)

		_, err := s.Take(ctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}
