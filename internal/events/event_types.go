package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserSignedUp          EventType = "user_signed_up"
	EventSubscriptionActivated EventType = "subscription_activated"
	EventPaymentFailed         EventType = "payment_failed"
	EventImageDeleted          EventType = "image_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, subjectID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// UserSignedUpPayload payload.
type UserSignedUpPayload struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// SubscriptionActivatedPayload payload.
type SubscriptionActivatedPayload struct {
	UserID        string    `json:"user_id"`
	PlanID        string    `json:"plan_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// PaymentFailedPayload payload.
type PaymentFailedPayload struct {
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// ImageDeletedPayload payload.
type ImageDeletedPayload struct {
	Slug    string `json:"slug"`
	FileKey string `json:"file_key"`
}
