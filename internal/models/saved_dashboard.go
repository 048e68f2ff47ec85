package models

import "time"

// SavedDashboard is a dashboard a user pinned for later. Payload holds the
// (possibly encrypted) JSON encoding of the dashboard.
type SavedDashboard struct {
	ID        string    `firestore:"id" json:"id"`
	Title     string    `firestore:"title" json:"title"`
	Intent    Intent    `firestore:"intent" json:"intent"`
	Payload   string    `firestore:"payload" json:"-"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}
