package stream

import (
	"encoding/json"

	"github.com/callpilot/callpilot-backend/internal/models"
)

// Outbound message actions
const (
	ActionMakeCall   = "make-call"
	ActionGetStatus  = "get-status"
	ActionDeleteCall = "delete-call"
)

// OutboundMessage is a request pushed to the feed. Delivery is best-effort:
// Send drops it silently when the connection is down.
type OutboundMessage struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// DecodeEvent classifies an inbound payload. It must be a JSON object
// carrying at least one known field; anything else is rejected and the
// caller discards it silently.
func DecodeEvent(data []byte) (models.CallEvent, bool) {
	var probe struct {
		ID                 *string        `json:"id"`
		Status             *string        `json:"status"`
		Conversation       *[]models.Turn `json:"conversation"`
		CustomerInterested *bool          `json:"customer_interested"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return models.CallEvent{}, false
	}
	if probe.ID == nil && probe.Status == nil && probe.Conversation == nil && probe.CustomerInterested == nil {
		return models.CallEvent{}, false
	}

	var ev models.CallEvent
	if probe.ID != nil {
		ev.ID = *probe.ID
	}
	if probe.Status != nil {
		ev.Status = *probe.Status
	}
	if probe.Conversation != nil {
		ev.Conversation = *probe.Conversation
	}
	ev.CustomerInterested = probe.CustomerInterested
	return ev, true
}
