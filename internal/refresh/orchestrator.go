// Package refresh decides when the month memo list must be refetched and
// which fetch result is allowed to become the calendar's data.
//
// An Orchestrator is not safe for concurrent use. The TUI drives it from
// its update loop and the daemon guards it with a mutex; only Fetch may run
// on another goroutine.
package refresh

import (
	"context"
	"time"

	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/query"
)

// DefaultPageSize covers a full month of one user's memos in one page.
const DefaultPageSize = 1000

// State is the orchestrator's position in the fetch cycle.
type State int

const (
	Idle State = iota
	Fetching
	Populated
	Fallback
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Populated:
		return "populated"
	case Fallback:
		return "fallback"
	}
	return "unknown"
}

// Trigger is the input snapshot a fetch is issued for. Filters are held as
// their value key so equal content compares equal.
type Trigger struct {
	Subject   string
	Month     string
	FilterKey string
}

// NewTrigger snapshots the inputs.
func NewTrigger(subject, month string, filters []filter.Filter) Trigger {
	return Trigger{Subject: subject, Month: month, FilterKey: filter.Key(filters)}
}

// Request is one issued fetch, tagged with its sequence number.
type Request struct {
	Seq     uint64
	Trigger Trigger
	List    memos.ListMemosRequest
}

// Result is the outcome of a Request, carrying the same sequence number.
type Result struct {
	Seq   uint64
	Memos []memos.Memo
	Err   error
}

// Lister is the memo list call the orchestrator depends on.
type Lister interface {
	ListMemos(ctx context.Context, req memos.ListMemosRequest) (*memos.ListMemosResponse, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithLocation sets the zone month windows and day keys are computed in.
func WithLocation(loc *time.Location) Option {
	return func(o *Orchestrator) {
		o.builder.Location = loc
	}
}

// Orchestrator tracks the latest trigger and the memo list stored for it.
type Orchestrator struct {
	builder  query.Builder
	pageSize int

	state   State
	last    Trigger
	hasLast bool
	seq     uint64
	items   []memos.Memo
	err     error
	applied time.Time
}

// New creates an idle orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Trigger issues a fetch for the given inputs unless they equal the last
// issued trigger, in which case it returns nil. A subject or month that
// cannot be turned into an expression returns the error and changes nothing.
func (o *Orchestrator) Trigger(subject, month string, filters []filter.Filter) (*Request, error) {
	t := NewTrigger(subject, month, filters)
	if o.hasLast && t == o.last {
		return nil, nil
	}

	expr, err := o.builder.Build(subject, month, filters)
	if err != nil {
		return nil, err
	}

	o.seq++
	o.last = t
	o.hasLast = true
	o.state = Fetching
	return &Request{
		Seq:     o.seq,
		Trigger: t,
		List:    memos.ListMemosRequest{Filter: expr, PageSize: o.pageSize},
	}, nil
}

// Fetch performs req against lister. It touches no orchestrator state and
// may run on any goroutine.
func Fetch(ctx context.Context, lister Lister, req *Request) Result {
	resp, err := lister.ListMemos(ctx, req.List)
	if err != nil {
		return Result{Seq: req.Seq, Err: err}
	}
	items := resp.Memos
	if items == nil {
		items = []memos.Memo{}
	}
	return Result{Seq: req.Seq, Memos: items}
}

// Apply stores res if it answers the latest issued request and reports
// whether it did. Results of superseded requests are dropped whenever
// they arrive.
func (o *Orchestrator) Apply(res Result) bool {
	if res.Seq != o.seq || o.state != Fetching {
		return false
	}

	o.applied = time.Now()
	if res.Err != nil {
		o.items = nil
		o.err = res.Err
		o.state = Fallback
		return true
	}

	o.items = res.Memos
	if o.items == nil {
		o.items = []memos.Memo{}
	}
	o.err = nil
	o.state = Populated
	return true
}

// Refresh triggers, fetches and applies in one call. It reports whether
// a fetch was issued.
func (o *Orchestrator) Refresh(ctx context.Context, lister Lister, subject, month string, filters []filter.Filter) (bool, error) {
	req, err := o.Trigger(subject, month, filters)
	if err != nil || req == nil {
		return false, err
	}
	o.Apply(Fetch(ctx, lister, req))
	return true, nil
}

// Reset forgets the last trigger so the next Trigger call fetches again.
// Stored data stays visible until the new result is applied.
func (o *Orchestrator) Reset() {
	o.hasLast = false
}

// CalendarData returns the day buckets of the stored memo list, or
// fallback unchanged when no list is stored.
func (o *Orchestrator) CalendarData(fallback map[string]int) map[string]int {
	if o.items == nil {
		return fallback
	}
	return pipeline.CountByDayIn(o.items, o.builder.Location)
}

// OnDay returns the stored memos created on day in the orchestrator's zone.
func (o *Orchestrator) OnDay(day string) []memos.Memo {
	return pipeline.OnDayIn(o.items, day, o.builder.Location)
}

// Location is the zone windows and day keys use; nil means time.Local.
func (o *Orchestrator) Location() *time.Location { return o.builder.Location }

// Items returns the stored memo list, nil when none is stored.
func (o *Orchestrator) Items() []memos.Memo { return o.items }

// HasItems reports whether a memo list is stored.
func (o *Orchestrator) HasItems() bool { return o.items != nil }

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// Err returns the error of the last failed fetch while in Fallback.
func (o *Orchestrator) Err() error { return o.err }

// Seq returns the sequence number of the latest issued request.
func (o *Orchestrator) Seq() uint64 { return o.seq }

// Last returns the last issued trigger.
func (o *Orchestrator) Last() (Trigger, bool) { return o.last, o.hasLast }

// AppliedAt is when the last result was applied.
func (o *Orchestrator) AppliedAt() time.Time { return o.applied }
