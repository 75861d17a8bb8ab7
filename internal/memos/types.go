package memos

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Memo is a single note as returned by the list endpoint.
// Only the fields memocal reads are decoded.
type Memo struct {
	Name        string     `json:"name" yaml:"name"`
	Creator     string     `json:"creator,omitempty" yaml:"creator,omitempty"`
	Content     string     `json:"content,omitempty" yaml:"content,omitempty"`
	Pinned      bool       `json:"pinned,omitempty" yaml:"pinned,omitempty"`
	Tags        []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Property    *Property  `json:"property,omitempty" yaml:"property,omitempty"`
	DisplayTime *Timestamp `json:"displayTime,omitempty" yaml:"displayTime,omitempty"`

	// Creation time arrives in one of three shapes depending on server version.
	CreatedTs  *int64     `json:"createdTs,omitempty" yaml:"createdTs,omitempty"`   // unix seconds
	CreateTime *Timestamp `json:"createTime,omitempty" yaml:"createTime,omitempty"` // unix seconds or RFC3339
	CreatedAt  *int64     `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`   // unix milliseconds
}

// Property holds the server-computed content flags of a memo.
type Property struct {
	HasLink            bool `json:"hasLink,omitempty" yaml:"hasLink,omitempty"`
	HasTaskList        bool `json:"hasTaskList,omitempty" yaml:"hasTaskList,omitempty"`
	HasCode            bool `json:"hasCode,omitempty" yaml:"hasCode,omitempty"`
	HasIncompleteTasks bool `json:"hasIncompleteTasks,omitempty" yaml:"hasIncompleteTasks,omitempty"`
}

// UnmarshalJSON decodes a memo, reading the integer creation fields from
// either numbers or numeric strings (protobuf JSON sends int64 as a string).
// A creation field that cannot be read decodes as zero.
func (m *Memo) UnmarshalJSON(raw []byte) error {
	type plain Memo
	aux := struct {
		*plain
		CreatedTs *lenientInt `json:"createdTs,omitempty"`
		CreatedAt *lenientInt `json:"createdAt,omitempty"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return err
	}
	m.CreatedTs = aux.CreatedTs.ptr()
	m.CreatedAt = aux.CreatedAt.ptr()
	return nil
}

// lenientInt is an integer that may arrive as a number or a numeric string.
type lenientInt int64

func (n *lenientInt) UnmarshalJSON(raw []byte) error {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = lenientInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = lenientInt(int64(f))
		return nil
	}
	*n = 0
	return nil
}

func (n *lenientInt) ptr() *int64 {
	if n == nil {
		return nil
	}
	v := int64(*n)
	return &v
}

// CreatedUnix resolves the creation instant in unix seconds, preferring
// createdTs, then createTime, then createdAt (floored to seconds).
// A missing or zero instant reports false.
func (m Memo) CreatedUnix() (int64, bool) {
	var ts int64
	switch {
	case m.CreatedTs != nil:
		ts = *m.CreatedTs
	case m.CreateTime != nil:
		ts = int64(*m.CreateTime)
	case m.CreatedAt != nil:
		ts = floorDiv(*m.CreatedAt, 1000)
	default:
		return 0, false
	}
	return ts, ts != 0
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Timestamp is a unix-seconds instant. The API sends it either as a number
// or as an RFC3339 string, so decoding accepts both. Anything else decodes
// as zero, which readers treat as absent.
type Timestamp int64

// Time returns the instant as a time.Time in the local zone.
func (ts Timestamp) Time() time.Time {
	return time.Unix(int64(ts), 0)
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(raw []byte) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		*ts = Timestamp(int64(f))
		return nil
	}

	*ts = 0
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*ts = Timestamp(t.Unix())
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*ts = Timestamp(n)
		return nil
	}
	return nil
}

// ListMemosRequest is the query for the memo list endpoint.
type ListMemosRequest struct {
	Filter    string
	PageSize  int
	PageToken string
}

// ListMemosResponse is one page of memos.
type ListMemosResponse struct {
	Memos         []Memo `json:"memos"`
	NextPageToken string `json:"nextPageToken"`
}

// User is the authenticated account.
type User struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// UserStats is the server's precomputed per-user statistics.
type UserStats struct {
	Name                  string         `json:"name"`
	MemoDisplayTimestamps []Timestamp    `json:"memoDisplayTimestamps"`
	MemoTypeStats         MemoTypeStats  `json:"memoTypeStats"`
	TagCount              map[string]int `json:"tagCount"`
	PinnedMemos           []string       `json:"pinnedMemos"`
	TotalMemoCount        int            `json:"totalMemoCount"`
}

// MemoTypeStats holds the per-category counters.
type MemoTypeStats struct {
	LinkCount int `json:"linkCount"`
	CodeCount int `json:"codeCount"`
	TodoCount int `json:"todoCount"`
	UndoCount int `json:"undoCount"`
}
