package domain

import "time"

// Visitor is a physical person identified by phone number. The phone is
// the natural dedup key: repeat visits from the same number overwrite
// name, email and company on the existing row.
type Visitor struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
