package models

import "time"

// AIMessage is one persisted turn of a copilot chat session.
type AIMessage struct {
	Role      string    `firestore:"role" json:"role"`
	Content   string    `firestore:"content,omitempty" json:"content,omitempty"`
	Action    string    `firestore:"action,omitempty" json:"action,omitempty"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `firestore:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}
