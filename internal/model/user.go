package model

import "time"

// User holds the minimal personal data this service keeps about a
// registrant.  Identity itself comes from the auth service (the JWT
// subject); this record exists so PDPA export and erasure have a single
// place to copy from and delete.
type User struct {
	ID        string    `json:"id"`         // users.id, the JWT subject
	Email     string    `json:"email"`      // users.email
	FullName  string    `json:"full_name"`  // users.full_name
	CreatedAt time.Time `json:"created_at"` // users.created_at
}
