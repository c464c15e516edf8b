package models

import "time"

// Transcript turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single exchange in a call transcript
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Call lifecycle statuses. While a call is active the status field may also
// carry the feed's reported status verbatim (e.g. "completed").
const (
	CallStatusInitiating = "initiating"
	CallStatusActive     = "active"
	CallStatusEnded      = "ended"
	CallStatusFailed     = "failed"
)

// CallRecord represents one call attempt in the history log.
// Records are append-only; only status, transcript and customer_interested
// change after creation.
type CallRecord struct {
	HistoryID   string `json:"history_id"`        // locally generated, unique forever
	CallID      string `json:"call_id,omitempty"` // assigned by the call agent, routing key for feed events
	RoomName    string `json:"room_name,omitempty"`
	PhoneNumber string `json:"phone_number"`
	ProductName string `json:"product_name"`
	Notes       string `json:"notes,omitempty"`

	Status             string `json:"status"`
	Transcript         []Turn `json:"transcript,omitempty"`
	CustomerInterested *bool  `json:"customer_interested,omitempty"` // nil = unknown, never reverts to nil

	Timestamp time.Time `json:"timestamp"`
}

// CallEvent is one decoded message from the status feed. Any subset of
// fields may be present; absent fields must not overwrite stored state.
type CallEvent struct {
	ID                 string `json:"id,omitempty"`
	Status             string `json:"status,omitempty"`
	Conversation       []Turn `json:"conversation,omitempty"`
	CustomerInterested *bool  `json:"customer_interested,omitempty"`
}
