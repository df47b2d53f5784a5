package capacity

import (
	"time"

	"github.com/medcamp/exam-seat-registration/internal/model"
)

// nearlyFullRatio is the occupancy share at which a session is reported
// LIMITED even though seats remain in both tiers.
const nearlyFullRatio = 0.9

// Session start times on the exam date.  Registration for a session closes
// at its start.
const (
	morningStartHour   = 9
	afternoonStartHour = 13
)

// Reason is a structured refusal or status sub-reason.  LIMITED is kept as
// a single status value for the UI, but views expose the reason separately
// instead of encoding it in message text.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonFreeQuotaExhausted Reason = "FREE_QUOTA_EXHAUSTED"
	ReasonSessionFull        Reason = "SESSION_FULL"
	ReasonRegistrationClosed Reason = "REGISTRATION_CLOSED"
	// ReasonNearlyFull is only a LIMITED sub-reason; it never refuses a
	// registration by itself.
	ReasonNearlyFull Reason = "NEARLY_FULL"
)

// RejectionError is a final business answer from the allocator.  It is
// never retried; the reason carries enough detail for a specific user
// message (suggest the advanced tier, another session, and so on).
type RejectionError struct {
	Reason Reason
}

func (e *RejectionError) Error() string {
	return "capacity: registration refused: " + string(e.Reason)
}

// Snapshot is the raw-count view of one session's occupancy that every
// derivation works from.  All functions below are pure: same snapshot in,
// same answer out.
type Snapshot struct {
	Total       int
	Free        int
	Advanced    int
	MaxCapacity int
	FreeLimit   int
}

// SnapshotOf extracts the counts from a capacity row.
func SnapshotOf(cs model.CapacityStatus) Snapshot {
	return Snapshot{
		Total:       cs.TotalCount,
		Free:        cs.FreeCount,
		Advanced:    cs.AdvancedCount,
		MaxCapacity: cs.MaxCapacity,
		FreeLimit:   cs.FreeLimit,
	}
}

// DeriveStatus maps counts to the availability status.  Checks run in the
// order CLOSED, FULL, LIMITED, AVAILABLE and the first match wins, so a
// session that is both at 90% and free-exhausted is just LIMITED.
func DeriveStatus(s Snapshot, closed bool) model.AvailabilityStatus {
	switch {
	case closed:
		return model.StatusClosed
	case s.Total >= s.MaxCapacity:
		return model.StatusFull
	case s.Free >= s.FreeLimit || nearlyFull(s):
		return model.StatusLimited
	default:
		return model.StatusAvailable
	}
}

// nearlyFull reports whether overall occupancy has reached the warning
// threshold.
func nearlyFull(s Snapshot) bool {
	if s.MaxCapacity <= 0 {
		return true
	}
	return float64(s.Total) >= nearlyFullRatio*float64(s.MaxCapacity)
}

// LimitedReason tells the two LIMITED conditions apart.  Free-quota
// exhaustion wins when both hold, since it is the one that changes what
// the registrant can do.  ReasonNone means the snapshot is not LIMITED.
func LimitedReason(s Snapshot) Reason {
	switch {
	case s.Free >= s.FreeLimit:
		return ReasonFreeQuotaExhausted
	case nearlyFull(s):
		return ReasonNearlyFull
	default:
		return ReasonNone
	}
}

// CanAccept is the accept/reject policy for one reservation attempt.  FREE
// needs headroom in the free quota, ADVANCED needs headroom in the shared
// overall pool; both are refused once the session is FULL or CLOSED.  The
// returned reason is meaningful only when ok is false.
func CanAccept(pkg model.PackageType, s Snapshot, closed bool) (ok bool, reason Reason) {
	switch DeriveStatus(s, closed) {
	case model.StatusClosed:
		return false, ReasonRegistrationClosed
	case model.StatusFull:
		return false, ReasonSessionFull
	}
	switch pkg {
	case model.PackageFree:
		if s.Free >= s.FreeLimit {
			return false, ReasonFreeQuotaExhausted
		}
	case model.PackageAdvanced:
		if s.Total >= s.MaxCapacity {
			return false, ReasonSessionFull
		}
	default:
		return false, ReasonNone
	}
	return true, ReasonNone
}

// HideExactCount reports whether exact seat counts should be withheld from
// display.  Low remaining counts are hidden to avoid false urgency and to
// keep competitive positioning vague.
func HideExactCount(status model.AvailabilityStatus) bool {
	return status == model.StatusLimited || status == model.StatusFull
}

// PercentFull returns overall occupancy rounded down to whole percent.
func PercentFull(s Snapshot) int {
	if s.MaxCapacity <= 0 {
		return 100
	}
	return s.Total * 100 / s.MaxCapacity
}

// StatusMessage renders the user-facing message for a status and its
// sub-reason.  Messages and statuses always come from the same snapshot so
// they cannot drift apart.
func StatusMessage(status model.AvailabilityStatus, reason Reason) string {
	switch status {
	case model.StatusClosed:
		return "Registration for this session has closed."
	case model.StatusFull:
		return "This session is full. Please pick another date or session."
	case model.StatusLimited:
		if reason == ReasonFreeQuotaExhausted {
			return "Free seats are sold out for this session. Advanced packages are still available."
		}
		return "Only a few seats remain for this session."
	default:
		return "Seats are available."
	}
}

// SessionStart returns the moment a session begins on the given exam date
// in the provided location.
func SessionStart(session model.SessionTime, examDate string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", examDate, loc)
	if err != nil {
		return time.Time{}, err
	}
	hour := morningStartHour
	if session == model.SessionAfternoon {
		hour = afternoonStartHour
	}
	return day.Add(time.Duration(hour) * time.Hour), nil
}

// SessionClosed reports whether the registration cutoff has passed for a
// session, judged against the supplied clock reading.  An unparseable date
// counts as closed so that bad input can never reach the accept path open.
func SessionClosed(session model.SessionTime, examDate string, now time.Time, loc *time.Location) bool {
	start, err := SessionStart(session, examDate, loc)
	if err != nil {
		return true
	}
	return !now.Before(start)
}
