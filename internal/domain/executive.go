package domain

// Executive is a host being visited. Rows are pre-seeded and read-only
// from this service; profile fields come from the linked user.
type Executive struct {
	ID         string `json:"id"`
	Position   string `json:"position"`
	Active     bool   `json:"active"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}
