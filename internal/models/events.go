package models

import "time"

// Event types
const (
	EventTypeEmailConfirmationRequested = "EMAIL_CONFIRMATION_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// EmailConfirmationRequestedEvent asks the mail relay to deliver a
// confirmation code
type EmailConfirmationRequestedEvent struct {
	BaseEvent
	UserID    int64     `json:"user_id"`
	To        string    `json:"to"`
	From      string    `json:"from"`
	Subject   string    `json:"subject"`
	Text      string    `json:"text"`
	HTML      string    `json:"html"`
	ExpiresAt time.Time `json:"expires_at"`
}
