package stats

import (
	"context"
	"errors"
	"maps"
	"testing"
	"time"

	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"
)

type fakeSource struct {
	stats *memos.UserStats
	err   error
}

func (f fakeSource) GetUserStats(_ context.Context, user string) (*memos.UserStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.stats
	return &s, nil
}

type memCache struct {
	saved   map[string]Snapshot
	saveErr error
}

func (m *memCache) SaveSnapshot(s Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.saved == nil {
		m.saved = make(map[string]Snapshot)
	}
	m.saved[s.User] = s
	return nil
}

func (m *memCache) LoadSnapshot(user string) (*Snapshot, error) {
	s, ok := m.saved[user]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

var sample = &memos.UserStats{
	MemoDisplayTimestamps: []memos.Timestamp{1710000000, 1710000060, 1709251200},
	MemoTypeStats:         memos.MemoTypeStats{LinkCount: 3, CodeCount: 1, TodoCount: 4, UndoCount: 1},
	TagCount:              map[string]int{"work": 2},
	PinnedMemos:           []string{"memos/1"},
	TotalMemoCount:        3,
}

func TestFromUserStats(t *testing.T) {
	at := time.Unix(1710000000, 0)
	s := FromUserStats(&memos.UserStats{Name: "users/42", MemoDisplayTimestamps: sample.MemoDisplayTimestamps,
		MemoTypeStats: sample.MemoTypeStats, PinnedMemos: sample.PinnedMemos}, at, time.UTC)

	if s.User != "users/42" || s.PinnedCount != 1 || !s.FetchedAt.Equal(at) {
		t.Errorf("snapshot = %+v", s)
	}
	if want := pipeline.CountTimestampsIn(sample.MemoDisplayTimestamps, time.UTC); !maps.Equal(s.ActivityByDay, want) {
		t.Errorf("activity = %v, want %v", s.ActivityByDay, want)
	}
	if n := pipeline.Total(s.ActivityByDay); n != 3 {
		t.Errorf("total = %d, want 3", n)
	}

	c := s.Counters()
	if c.TodoDone() != 3 || c.Links != 3 {
		t.Errorf("counters = %+v", c)
	}
}

func TestFromUserStats_DaysInZone(t *testing.T) {
	// 2024-03-01 05:00 in Tokyo, 2024-02-29 in UTC.
	us := &memos.UserStats{MemoDisplayTimestamps: []memos.Timestamp{1709236800}}

	if got := FromUserStats(us, time.Now(), time.FixedZone("JST", 9*3600)).ActivityByDay; got["2024-03-01"] != 1 {
		t.Errorf("Tokyo activity = %v", got)
	}
	if got := FromUserStats(us, time.Now(), time.UTC).ActivityByDay; got["2024-02-29"] != 1 {
		t.Errorf("UTC activity = %v", got)
	}
}

func TestLoad_FreshIsCached(t *testing.T) {
	cache := &memCache{}
	s, err := Load(context.Background(), fakeSource{stats: sample}, cache, "users/42", time.UTC)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Stale || s.User != "users/42" {
		t.Errorf("snapshot = %+v", s)
	}
	if _, ok := cache.saved["users/42"]; !ok {
		t.Error("snapshot was not cached")
	}
}

func TestLoad_FailureServesStaleCache(t *testing.T) {
	cache := &memCache{}
	if _, err := Load(context.Background(), fakeSource{stats: sample}, cache, "users/42", time.UTC); err != nil {
		t.Fatalf("Load: %v", err)
	}

	s, err := Load(context.Background(), fakeSource{err: memos.ErrUnauthorized}, cache, "users/42", time.UTC)
	if !errors.Is(err, memos.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
	if !s.Stale || pipeline.Total(s.ActivityByDay) != 3 {
		t.Errorf("snapshot = %+v, want the stale cached one", s)
	}
}

func TestLoad_FailureWithEmptyCache(t *testing.T) {
	s, err := Load(context.Background(), fakeSource{err: errors.New("offline")}, &memCache{}, "users/42", time.UTC)
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("err = %v, want ErrNoSnapshot", err)
	}
	if s.ActivityByDay == nil || len(s.ActivityByDay) != 0 {
		t.Errorf("activity = %#v, want an empty map", s.ActivityByDay)
	}
}

func TestLoad_NilCache(t *testing.T) {
	s, err := Load(context.Background(), fakeSource{stats: sample}, nil, "users/42", time.UTC)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.PinnedCount != 1 {
		t.Errorf("pinned = %d, want 1", s.PinnedCount)
	}
}

func TestLoad_CacheWriteFailureStillReturnsData(t *testing.T) {
	s, err := Load(context.Background(), fakeSource{stats: sample}, &memCache{saveErr: errors.New("disk full")}, "users/42", time.UTC)
	if err == nil {
		t.Error("cache write failure was not reported")
	}
	if s.TotalMemos != 3 {
		t.Errorf("total memos = %d, want 3", s.TotalMemos)
	}
}
