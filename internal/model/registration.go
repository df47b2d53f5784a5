package model

import "time"

// Registration represents one committed exam registration.  The row is
// only created after the allocator has committed a seat, and deleting it
// (cancellation, PDPA erasure) must be followed by a seat release.
//
// Fields:
//  ID          – primary key identifier.
//  ExamCode    – unique code handed to the student, used on exam day.
//  UserID      – external identity of the registrant (JWT subject).
//  PackageType – FREE or ADVANCED.
//  SessionTime – exam session the seat was committed against.
//  ExamDate    – exam date in YYYY-MM-DD form.
//  PaymentRef  – gateway reference for ADVANCED registrations (nil for FREE).
//  CreatedAt   – when the registration was committed.
type Registration struct {
	ID          uint64      `json:"-"`
	ExamCode    string      `json:"exam_code"`
	UserID      string      `json:"-"`
	PackageType PackageType `json:"package_type"`
	SessionTime SessionTime `json:"session_time"`
	ExamDate    string      `json:"exam_date"`
	PaymentRef  *string     `json:"payment_ref,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
