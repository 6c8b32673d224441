package models

// Trip is a shared context under which expenses are logged.
type Trip struct {
	// ID is the unique identifier for the trip (UUID format).
	ID string

	// Name is the display name of the trip (e.g., "Lisbon 2026").
	Name string

	// Destination is free text, optional.
	Destination string

	// StartDate and EndDate are optional ISO dates (YYYY-MM-DD).
	StartDate string
	EndDate   string

	// Members is the trip roster: the closed set of user IDs that may pay or owe.
	// Order is the order members joined and is used for tie-breaking when settling.
	Members []string

	// CreatedBy is the user ID of the trip creator.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the trip was created.
	CreatedAt int64
}

// HasMember reports whether userID is on the trip roster.
func (t *Trip) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}
