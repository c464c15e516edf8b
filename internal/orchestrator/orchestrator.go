package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/callpilot/callpilot-backend/internal/callagent"
	"github.com/callpilot/callpilot-backend/internal/history"
	"github.com/callpilot/callpilot-backend/internal/lifecycle"
	"github.com/callpilot/callpilot-backend/internal/models"
	"github.com/callpilot/callpilot-backend/internal/stream"
)

// CallAgent is the slice of the call-agent client the orchestrator needs
type CallAgent interface {
	MakeCall(ctx context.Context, phoneNumber, customInstructions string) (*callagent.MakeCallResponse, error)
	CallStatus(ctx context.Context, roomName string) (json.RawMessage, error)
	EndCall(ctx context.Context, roomName string) error
}

// StreamSender pushes best-effort messages to the status feed
type StreamSender interface {
	Send(msg stream.OutboundMessage)
}

// LiveSession is the ephemeral state of the call currently eligible for
// status and end-call actions. It is not persisted.
type LiveSession struct {
	Connected      bool          `json:"connected"`
	ActiveCallID   string        `json:"active_call_id,omitempty"`
	ActiveRoomName string        `json:"active_room_name,omitempty"`
	LiveStatus     string        `json:"live_status,omitempty"`
	LiveTranscript []models.Turn `json:"live_transcript,omitempty"`
}

// Orchestrator drives call lifecycles: it issues actions against the call
// agent, appends every attempt to the history store, and routes feed events
// into the per-call lifecycle machines. One mutex serializes all state;
// network calls happen outside it, so feed events interleave with
// outstanding requests.
type Orchestrator struct {
	agent   CallAgent
	history *history.Store

	mu       sync.Mutex
	machines map[string]*lifecycle.Machine // keyed by call ID
	live     LiveSession
	sender   StreamSender
}

// New creates an orchestrator over the given agent client and history store
func New(agent CallAgent, hist *history.Store) *Orchestrator {
	return &Orchestrator{
		agent:    agent,
		history:  hist,
		machines: make(map[string]*lifecycle.Machine),
	}
}

// AttachStream wires the feed's send capability. Optional; without it the
// orchestrator simply never nudges the feed.
func (o *Orchestrator) AttachStream(s StreamSender) {
	o.mu.Lock()
	o.sender = s
	o.mu.Unlock()
}

// StartCall validates the inputs, issues the initiation request and records
// the attempt. Past validation it never returns an error: transport and
// remote failures resolve to a terminal failed record, so no attempt is
// silently lost.
func (o *Orchestrator) StartCall(ctx context.Context, phoneNumber, productName, customInstructions, notes string) (models.CallRecord, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return models.CallRecord{}, &ValidationError{Field: "phone_number", Reason: "must not be empty"}
	}
	if productName == "" {
		return models.CallRecord{}, &ValidationError{Field: "product", Reason: "no product selected"}
	}

	rec := &models.CallRecord{
		HistoryID:   "call-" + uuid.NewString(),
		PhoneNumber: phoneNumber,
		ProductName: productName,
		Notes:       notes,
		Status:      models.CallStatusInitiating,
		Timestamp:   time.Now().UTC(),
	}
	machine := lifecycle.New()

	// The attempt is visible in history before the request goes out
	o.history.Append(rec)

	ack, err := o.agent.MakeCall(ctx, phoneNumber, customInstructions)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		log.Printf("⚠️  Call initiation failed for %s: %v", phoneNumber, err)
		o.history.UpdateByHistoryID(rec.HistoryID, func(r *models.CallRecord) {
			machine.Fail(r)
		})
		snapshot, _ := o.history.FindByHistoryID(rec.HistoryID)
		return snapshot, nil
	}

	o.history.UpdateByHistoryID(rec.HistoryID, func(r *models.CallRecord) {
		machine.Acknowledge(r, ack.CallID, ack.RoomName)
	})
	o.machines[ack.CallID] = machine

	// A new call takes over the live session; the transcript resets
	o.live.ActiveCallID = ack.CallID
	o.live.ActiveRoomName = ack.RoomName
	o.live.LiveStatus = ""
	o.live.LiveTranscript = nil

	log.Printf("📞 Call %s started for %s (room %s)", ack.CallID, phoneNumber, ack.RoomName)

	snapshot, _ := o.history.FindByHistoryID(rec.HistoryID)
	return snapshot, nil
}

// GetStatus pulls a status snapshot for the active call. Transport failures
// are surfaced, not retried; retrying is the operator's decision.
func (o *Orchestrator) GetStatus(ctx context.Context) (json.RawMessage, error) {
	o.mu.Lock()
	room := o.live.ActiveRoomName
	sender := o.sender
	connected := o.live.Connected
	o.mu.Unlock()

	if room == "" {
		return nil, ErrNoActiveCall
	}

	// Nudge the feed for a fresh push; best-effort, may be dropped
	if sender != nil && connected {
		sender.Send(stream.OutboundMessage{
			Action:  stream.ActionGetStatus,
			Payload: map[string]string{"id": room},
		})
	}

	snapshot, err := o.agent.CallStatus(ctx, room)
	if err != nil {
		return nil, &TransportError{Op: "get call status", Err: err}
	}
	return snapshot, nil
}

// EndCall terminates the active call. A room the agent no longer knows about
// counts as natural termination: the record still moves to ended and no
// error is surfaced. Any other failure leaves all state unchanged.
func (o *Orchestrator) EndCall(ctx context.Context) error {
	o.mu.Lock()
	room := o.live.ActiveRoomName
	callID := o.live.ActiveCallID
	o.mu.Unlock()

	if room == "" {
		return ErrNoActiveCall
	}

	err := o.agent.EndCall(ctx, room)
	if err != nil && !errors.Is(err, callagent.ErrRoomNotFound) {
		return &TransportError{Op: "end call", Err: err}
	}
	if errors.Is(err, callagent.ErrRoomNotFound) {
		log.Printf("📞 Room %s already gone; treating call %s as ended", room, callID)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if machine, ok := o.machines[callID]; ok {
		o.history.UpdateByCallID(callID, func(r *models.CallRecord) {
			machine.End(r)
		})
		delete(o.machines, callID)
	}

	// Terminal transition clears the active identifiers
	if o.live.ActiveCallID == callID {
		o.live.ActiveCallID = ""
		o.live.ActiveRoomName = ""
		o.live.LiveStatus = ""
	}
	return nil
}

// HandleStreamEvent routes a decoded feed event into the matching lifecycle
// machine. Events with an unknown or absent call ID are ignored, as are
// events for calls already terminal; a stale push after termination must
// not corrupt history.
func (o *Orchestrator) HandleStreamEvent(ev models.CallEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if ev.ID == "" {
		return
	}
	machine, ok := o.machines[ev.ID]
	if !ok {
		return
	}

	o.history.UpdateByCallID(ev.ID, func(r *models.CallRecord) {
		machine.Update(r, ev)
	})

	if ev.ID == o.live.ActiveCallID {
		if ev.Status != "" {
			o.live.LiveStatus = ev.Status
		}
		if len(ev.Conversation) > 0 {
			transcript := make([]models.Turn, len(ev.Conversation))
			copy(transcript, ev.Conversation)
			o.live.LiveTranscript = transcript
		}
	}
}

// HandleConnectionChange mirrors the feed's connection state into the live
// session
func (o *Orchestrator) HandleConnectionChange(connected bool) {
	o.mu.Lock()
	o.live.Connected = connected
	o.mu.Unlock()
}

// Live returns a snapshot of the live session state
func (o *Orchestrator) Live() LiveSession {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := o.live
	if o.live.LiveTranscript != nil {
		out.LiveTranscript = make([]models.Turn, len(o.live.LiveTranscript))
		copy(out.LiveTranscript, o.live.LiveTranscript)
	}
	return out
}

// History exposes the underlying history store for read paths
func (o *Orchestrator) History() *history.Store {
	return o.history
}
