// Package store provides a SQLite-backed cache for statistics snapshots
// and the persisted filter set.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/stats"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache provides SQLite-backed persistence.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
// The special path ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Cache, error) {
	dsn := "file::memory:?_pragma=foreign_keys(on)"
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// SaveSnapshot replaces the stored snapshot for s.User.
func (c *Cache) SaveSnapshot(s stats.Snapshot) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	fetchedAt := s.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err = tx.Exec(`INSERT INTO user_stats
		(user, link_count, code_count, todo_count, undo_count, pinned_count, total_memos, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user) DO UPDATE SET
		 link_count = excluded.link_count, code_count = excluded.code_count,
		 todo_count = excluded.todo_count, undo_count = excluded.undo_count,
		 pinned_count = excluded.pinned_count, total_memos = excluded.total_memos,
		 fetched_at = excluded.fetched_at`,
		s.User, s.TypeStats.LinkCount, s.TypeStats.CodeCount, s.TypeStats.TodoCount,
		s.TypeStats.UndoCount, s.PinnedCount, s.TotalMemos, fetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM activity_days WHERE user = ?", s.User); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM tag_counts WHERE user = ?", s.User); err != nil {
		return err
	}

	for day, n := range s.ActivityByDay {
		if _, err := tx.Exec(`INSERT INTO activity_days (user, day, count) VALUES (?, ?, ?)`,
			s.User, day, n); err != nil {
			return err
		}
	}
	for tag, n := range s.TagCounts {
		if _, err := tx.Exec(`INSERT INTO tag_counts (user, tag, count) VALUES (?, ?, ?)`,
			s.User, tag, n); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads the stored snapshot for user. It returns nil, nil
// when nothing has been cached yet.
func (c *Cache) LoadSnapshot(user string) (*stats.Snapshot, error) {
	s := stats.Snapshot{
		User:          user,
		ActivityByDay: make(map[string]int),
		TagCounts:     make(map[string]int),
	}

	var fetchedAt string
	var ts memos.MemoTypeStats
	err := c.db.QueryRow(`SELECT link_count, code_count, todo_count, undo_count,
		pinned_count, total_memos, fetched_at FROM user_stats WHERE user = ?`, user).
		Scan(&ts.LinkCount, &ts.CodeCount, &ts.TodoCount, &ts.UndoCount,
			&s.PinnedCount, &s.TotalMemos, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.TypeStats = ts
	s.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)

	rows, err := c.db.Query("SELECT day, count FROM activity_days WHERE user = ?", user)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		s.ActivityByDay[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tagRows, err := c.db.Query("SELECT tag, count FROM tag_counts WHERE user = ?", user)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tagRows.Close() }()
	for tagRows.Next() {
		var tag string
		var n int
		if err := tagRows.Scan(&tag, &n); err != nil {
			return nil, err
		}
		s.TagCounts[tag] = n
	}

	return &s, tagRows.Err()
}

// SaveFilters replaces the persisted filter set.
func (c *Cache) SaveFilters(filters []filter.Filter) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM filters"); err != nil {
		return err
	}
	for i, f := range filters {
		if _, err := tx.Exec(`INSERT INTO filters (position, factor, value) VALUES (?, ?, ?)`,
			i, string(f.Factor), f.Value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadFilters reads the persisted filter set in order.
func (c *Cache) LoadFilters() ([]filter.Filter, error) {
	rows, err := c.db.Query("SELECT factor, value FROM filters ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var filters []filter.Filter
	for rows.Next() {
		var factor, value string
		if err := rows.Scan(&factor, &value); err != nil {
			return nil, err
		}
		filters = append(filters, filter.Filter{Factor: filter.Factor(factor), Value: value})
	}
	return filters, rows.Err()
}

// SnapshotUsers lists the users with a cached snapshot.
func (c *Cache) SnapshotUsers() ([]string, error) {
	rows, err := c.db.Query("SELECT user FROM user_stats ORDER BY user")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
