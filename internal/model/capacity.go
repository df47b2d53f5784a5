package model

import "time"

// SessionTime identifies one of the two fixed exam time slots on a given
// date.  The string values match the ENUM stored in the database.
type SessionTime string

const (
	SessionMorning   SessionTime = "MORNING"   // morning sitting, starts 09:00
	SessionAfternoon SessionTime = "AFTERNOON" // afternoon sitting, starts 13:00
)

// Valid reports whether the session time is one of the known slots.
func (s SessionTime) Valid() bool {
	return s == SessionMorning || s == SessionAfternoon
}

// Sessions lists all exam sessions in display order.
func Sessions() []SessionTime {
	return []SessionTime{SessionMorning, SessionAfternoon}
}

// PackageType is the registration tier.  Both tiers draw from the shared
// overall capacity; FREE is additionally capped by the free limit.
type PackageType string

const (
	PackageFree     PackageType = "FREE"
	PackageAdvanced PackageType = "ADVANCED"
)

// Valid reports whether the package type is a known tier.
func (p PackageType) Valid() bool {
	return p == PackageFree || p == PackageAdvanced
}

// AvailabilityStatus is the display-oriented projection of a session's
// occupancy.  Downstream business rules (accept/reject, count hiding)
// depend on it, so it is always derived from counts in one place rather
// than trusted from a cached row.
type AvailabilityStatus string

const (
	StatusAvailable AvailabilityStatus = "AVAILABLE"
	StatusLimited   AvailabilityStatus = "LIMITED"
	StatusFull      AvailabilityStatus = "FULL"
	StatusClosed    AvailabilityStatus = "CLOSED"
)

// SessionCapacity mirrors the session_capacity ledger table.  It tracks the
// total seats consumed for one session on one date and is kept in lockstep
// with the capacity_status row by the store's delta operation.
//
// Fields:
//  ID           – primary key identifier.
//  SessionTime  – MORNING or AFTERNOON.
//  ExamDate     – exam date in YYYY-MM-DD form.
//  CurrentCount – total seats consumed across both tiers.
//  MaxCapacity  – overall seat cap for the session (default 300).
type SessionCapacity struct {
	ID           uint64      // session_capacity.id
	SessionTime  SessionTime // session_capacity.session_time
	ExamDate     string      // session_capacity.exam_date
	CurrentCount int         // session_capacity.current_count
	MaxCapacity  int         // session_capacity.max_capacity
}

// CapacityStatus mirrors the capacity_status table, the allocation ledger
// for one exam session on one date.  Invariants after every committed
// mutation: FreeCount+AdvancedCount == TotalCount, FreeCount <= FreeLimit,
// TotalCount <= MaxCapacity, all counts >= 0.
//
// The persisted AvailabilityStatus never holds CLOSED: the registration
// cutoff is a clock fact, so CLOSED is overlaid at read time.
type CapacityStatus struct {
	ID                 uint64             // capacity_status.id
	SessionTime        SessionTime        // capacity_status.session_time
	ExamDate           string             // capacity_status.exam_date
	TotalCount         int                // capacity_status.total_count
	FreeCount          int                // capacity_status.free_count
	AdvancedCount      int                // capacity_status.advanced_count
	MaxCapacity        int                // capacity_status.max_capacity (default 300)
	FreeLimit          int                // capacity_status.free_limit (default 150)
	AvailabilityStatus AvailabilityStatus // capacity_status.availability_status
	LastUpdated        time.Time          // capacity_status.last_updated
}
