// Package queue defines message payloads exchanged over the message broker.
package queue

// RegistrationConfirmedEvent is published after a seat has been committed
// and the registration record written.  It carries enough for downstream
// consumers (confirmation email, analytics) to act without querying the
// primary database.  Seat counts are deliberately absent: consumers must
// not make capacity decisions from events.
type RegistrationConfirmedEvent struct {
	ExamCode    string `json:"exam_code"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	PackageType string `json:"package_type"`
	SessionTime string `json:"session_time"`
	ExamDate    string `json:"exam_date"`
	ConfirmedAt string `json:"confirmed_at"`
}
