package capacity

import (
	"context"
	"time"

	"github.com/medcamp/exam-seat-registration/internal/model"
)

// Defaults describes the capacity limits presented for sessions that have
// no row yet.  Views are read-only, so an untouched session is synthesised
// from these instead of being created.
type Defaults struct {
	MaxCapacity int
	FreeLimit   int
}

// SessionView is the display projection of one session.  Exact counts and
// the occupancy percentage are withheld once the status says so; the
// remaining fields are always safe to show.
type SessionView struct {
	SessionTime   model.SessionTime        `json:"session_time"`
	ExamDate      string                   `json:"exam_date"`
	Status        model.AvailabilityStatus `json:"availability_status"`
	LimitedReason Reason                   `json:"limited_reason,omitempty"`
	Message       string                   `json:"message"`
	HideExact     bool                     `json:"hide_exact"`
	TotalCount    *int                     `json:"total_count,omitempty"`
	FreeCount     *int                     `json:"free_count,omitempty"`
	AdvancedCount *int                     `json:"advanced_count,omitempty"`
	PercentFull   *int                     `json:"percent_full,omitempty"`
	MaxCapacity   int                      `json:"max_capacity"`
	FreeLimit     int                      `json:"free_limit"`
	LastUpdated   *time.Time               `json:"last_updated,omitempty"`
}

// DateSummary aggregates both sessions of one exam date with an overall
// roll-up for messaging.
type DateSummary struct {
	ExamDate string                   `json:"exam_date"`
	Sessions map[string]SessionView   `json:"sessions"`
	Overall  model.AvailabilityStatus `json:"overall"`
	Message  string                   `json:"message"`
}

// Query is the read side of the engine.  It never mutates capacity and is
// safe to poll; staleness of a few seconds is acceptable because the
// accept decision never comes from here.
type Query struct {
	store    Store
	defaults Defaults
	loc      *time.Location
	now      func() time.Time
}

// NewQuery builds the query service over the same store the allocator
// writes to.
func NewQuery(store Store, defaults Defaults, loc *time.Location) *Query {
	if store == nil {
		panic("nil store passed to NewQuery")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Query{store: store, defaults: defaults, loc: loc, now: time.Now}
}

// SessionView returns the display projection for one (session, date) pair.
// An absent row is presented as an untouched session with default limits.
func (q *Query) SessionView(ctx context.Context, session model.SessionTime, examDate string) (SessionView, error) {
	rows, err := q.store.ReadMany(ctx, examDate)
	if err != nil {
		return SessionView{}, err
	}
	for _, cs := range rows {
		if cs.SessionTime == session {
			return q.project(cs), nil
		}
	}
	return q.project(q.untouched(session, examDate)), nil
}

// DateSummary reads all sessions for a date in one pass and derives the
// overall roll-up: FULL only when every session is FULL, CLOSED only when
// every session is CLOSED; otherwise the least-restrictive session status
// dominates.
func (q *Query) DateSummary(ctx context.Context, examDate string) (DateSummary, error) {
	rows, err := q.store.ReadMany(ctx, examDate)
	if err != nil {
		return DateSummary{}, err
	}
	byTime := make(map[model.SessionTime]model.CapacityStatus, len(rows))
	for _, cs := range rows {
		byTime[cs.SessionTime] = cs
	}

	out := DateSummary{ExamDate: examDate, Sessions: make(map[string]SessionView, 2)}
	overall := model.StatusClosed
	for _, session := range model.Sessions() {
		cs, ok := byTime[session]
		if !ok {
			cs = q.untouched(session, examDate)
		}
		view := q.project(cs)
		out.Sessions[sessionKey(session)] = view
		if statusRank(view.Status) < statusRank(overall) {
			overall = view.Status
		}
	}
	out.Overall = overall
	out.Message = StatusMessage(overall, ReasonNone)
	return out, nil
}

// project derives the full view from one capacity row, overlaying CLOSED
// from the clock and hiding counts per the display policy.
func (q *Query) project(cs model.CapacityStatus) SessionView {
	snap := SnapshotOf(cs)
	closed := SessionClosed(cs.SessionTime, cs.ExamDate, q.now().In(q.loc), q.loc)
	status := DeriveStatus(snap, closed)
	reason := Reason("")
	if status == model.StatusLimited {
		reason = LimitedReason(snap)
	}
	view := SessionView{
		SessionTime:   cs.SessionTime,
		ExamDate:      cs.ExamDate,
		Status:        status,
		LimitedReason: reason,
		Message:       StatusMessage(status, reason),
		HideExact:     HideExactCount(status),
		MaxCapacity:   cs.MaxCapacity,
		FreeLimit:     cs.FreeLimit,
	}
	if !cs.LastUpdated.IsZero() {
		t := cs.LastUpdated
		view.LastUpdated = &t
	}
	if !view.HideExact {
		total, free, adv, pct := snap.Total, snap.Free, snap.Advanced, PercentFull(snap)
		view.TotalCount = &total
		view.FreeCount = &free
		view.AdvancedCount = &adv
		view.PercentFull = &pct
	}
	return view
}

// untouched synthesises a zero-count row for a session nobody registered
// for yet.
func (q *Query) untouched(session model.SessionTime, examDate string) model.CapacityStatus {
	return model.CapacityStatus{
		SessionTime:        session,
		ExamDate:           examDate,
		MaxCapacity:        q.defaults.MaxCapacity,
		FreeLimit:          q.defaults.FreeLimit,
		AvailabilityStatus: model.StatusAvailable,
	}
}

// statusRank orders statuses from least to most restrictive.
func statusRank(s model.AvailabilityStatus) int {
	switch s {
	case model.StatusAvailable:
		return 0
	case model.StatusLimited:
		return 1
	case model.StatusFull:
		return 2
	default: // CLOSED
		return 3
	}
}

func sessionKey(s model.SessionTime) string {
	if s == model.SessionAfternoon {
		return "afternoon"
	}
	return "morning"
}
