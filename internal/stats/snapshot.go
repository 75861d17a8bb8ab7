// Package stats provides the user's precomputed activity statistics, the
// calendar's data when no filtered memo list is available.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"
)

// ErrNoSnapshot means neither the server nor the cache had statistics.
var ErrNoSnapshot = errors.New("stats: no snapshot available")

// Snapshot is one user's statistics at a point in time.
type Snapshot struct {
	User          string              `json:"user" yaml:"user"`
	ActivityByDay map[string]int      `json:"activityByDay" yaml:"activityByDay"`
	TypeStats     memos.MemoTypeStats `json:"typeStats" yaml:"typeStats"`
	PinnedCount   int                 `json:"pinnedCount" yaml:"pinnedCount"`
	TotalMemos    int                 `json:"totalMemos" yaml:"totalMemos"`
	TagCounts     map[string]int      `json:"tagCounts,omitempty" yaml:"tagCounts,omitempty"`
	FetchedAt     time.Time           `json:"fetchedAt" yaml:"fetchedAt"`

	// Stale is set when the snapshot came from the cache after a failed fetch.
	Stale bool `json:"stale,omitempty" yaml:"stale,omitempty"`
}

// Counters converts the type statistics to the calendar's counter row.
func (s Snapshot) Counters() pipeline.Counters {
	return pipeline.Counters{
		Pinned:     s.PinnedCount,
		Links:      s.TypeStats.LinkCount,
		Code:       s.TypeStats.CodeCount,
		Todo:       s.TypeStats.TodoCount,
		TodoUndone: s.TypeStats.UndoCount,
	}
}

// FromUserStats derives a snapshot from the server response, keying
// activity by day in loc (nil means time.Local).
func FromUserStats(us *memos.UserStats, fetchedAt time.Time, loc *time.Location) Snapshot {
	tags := make(map[string]int, len(us.TagCount))
	for tag, n := range us.TagCount {
		tags[tag] = n
	}
	return Snapshot{
		User:          us.Name,
		ActivityByDay: pipeline.CountTimestampsIn(us.MemoDisplayTimestamps, loc),
		TypeStats:     us.MemoTypeStats,
		PinnedCount:   len(us.PinnedMemos),
		TotalMemos:    us.TotalMemoCount,
		TagCounts:     tags,
		FetchedAt:     fetchedAt,
	}
}

// Source is the statistics call of the memos client.
type Source interface {
	GetUserStats(ctx context.Context, userName string) (*memos.UserStats, error)
}

// Cache persists snapshots between runs.
type Cache interface {
	SaveSnapshot(s Snapshot) error
	LoadSnapshot(user string) (*Snapshot, error)
}

// Fetch asks the server for user's statistics, with days taken in loc.
func Fetch(ctx context.Context, src Source, user string, loc *time.Location) (Snapshot, error) {
	us, err := src.GetUserStats(ctx, user)
	if err != nil {
		return Snapshot{}, fmt.Errorf("stats: fetching %s: %w", user, err)
	}
	if us.Name == "" {
		us.Name = user
	}
	return FromUserStats(us, time.Now(), loc), nil
}

// Load fetches fresh statistics and writes them to cache. When the fetch
// fails it returns the cached snapshot marked Stale along with the fetch
// error, so callers can show data and still report the failure. A nil
// cache disables both directions.
func Load(ctx context.Context, src Source, cache Cache, user string, loc *time.Location) (Snapshot, error) {
	snap, fetchErr := Fetch(ctx, src, user, loc)
	if fetchErr == nil {
		if cache != nil {
			if err := cache.SaveSnapshot(snap); err != nil {
				return snap, fmt.Errorf("stats: caching snapshot: %w", err)
			}
		}
		return snap, nil
	}

	if errors.Is(fetchErr, memos.ErrInvalidSubject) || cache == nil {
		return Snapshot{User: user, ActivityByDay: map[string]int{}}, fetchErr
	}

	cached, err := cache.LoadSnapshot(user)
	if err != nil || cached == nil {
		return Snapshot{User: user, ActivityByDay: map[string]int{}}, errors.Join(fetchErr, ErrNoSnapshot)
	}
	cached.Stale = true
	return *cached, fetchErr
}
