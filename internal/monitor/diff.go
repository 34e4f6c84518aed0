package monitor

import (
	"slices"
	"time"

	"github.com/Hara602/fileSentry/internal/model"
	"github.com/Hara602/fileSentry/internal/snapshot"
)

// Diff returns the events that turn prev into next, ordered by path. A path
// whose directory/file classification flipped yields a Deleted for the old
// classification followed by a Created for the new one.
func Diff(prev, next snapshot.Snapshot, at time.Time) []model.Event {
	paths := make([]string, 0, len(next))
	for p := range prev {
		paths = append(paths, p)
	}
	for p := range next {
		if _, ok := prev[p]; !ok {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)

	var events []model.Event
	for _, p := range paths {
		old, existed := prev[p]
		cur, exists := next[p]
		if existed && exists && old.IsDir == cur.IsDir {
			continue
		}
		if existed {
			events = append(events, model.Event{Kind: model.Deleted, Path: p, IsDirectory: old.IsDir, ObservedAt: at})
		}
		if exists {
			events = append(events, model.Event{Kind: model.Created, Path: p, IsDirectory: cur.IsDir, ObservedAt: at})
		}
	}
	return events
}
