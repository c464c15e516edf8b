package lifecycle

import (
	"github.com/callpilot/callpilot-backend/internal/models"
)

// State is the canonical lifecycle position of a call
type State int

const (
	StateInitiating State = iota // start-call request issued, not yet acknowledged
	StateActive                  // acknowledged by the call agent
	StateEnded                   // terminal
	StateFailed                  // terminal
)

func (s State) String() string {
	switch s {
	case StateInitiating:
		return models.CallStatusInitiating
	case StateActive:
		return models.CallStatusActive
	case StateEnded:
		return models.CallStatusEnded
	case StateFailed:
		return models.CallStatusFailed
	}
	return "unknown"
}

// Terminal reports whether no further transitions can leave s
func (s State) Terminal() bool {
	return s == StateEnded || s == StateFailed
}

// Machine drives the lifecycle of a single call. It performs no I/O; every
// transition's side effects are confined to mutating the CallRecord handed
// in, which keeps it independently testable. Each transition method returns
// false when the machine is not in a state that permits it.
type Machine struct {
	state State
}

// New creates a machine in the initiating state
func New() *Machine {
	return &Machine{state: StateInitiating}
}

// State returns the current lifecycle state
func (m *Machine) State() State {
	return m.state
}

// Acknowledge moves initiating → active when the call agent confirms the
// call, attaching the identifiers it returned. CallID is immutable from
// here on.
func (m *Machine) Acknowledge(rec *models.CallRecord, callID, roomName string) bool {
	if m.state != StateInitiating {
		return false
	}
	m.state = StateActive
	rec.CallID = callID
	rec.RoomName = roomName
	rec.Status = models.CallStatusActive
	return true
}

// Fail moves initiating → failed on an HTTP failure, network error or
// malformed acknowledgment. The record keeps no call ID.
func (m *Machine) Fail(rec *models.CallRecord) bool {
	if m.state != StateInitiating {
		return false
	}
	m.state = StateFailed
	rec.Status = models.CallStatusFailed
	return true
}

// Update applies a feed event to an active call (active → active). The
// status string mirrors the feed verbatim, a non-empty conversation replaces
// the stored transcript (the feed sends cumulative snapshots, not deltas),
// and interest is set whenever present — never back to unknown. Events for
// calls in any other state are dropped.
func (m *Machine) Update(rec *models.CallRecord, ev models.CallEvent) bool {
	if m.state != StateActive {
		return false
	}

	if ev.Status != "" {
		rec.Status = ev.Status
	}
	if len(ev.Conversation) > 0 {
		transcript := make([]models.Turn, len(ev.Conversation))
		copy(transcript, ev.Conversation)
		rec.Transcript = transcript
	}
	if ev.CustomerInterested != nil {
		v := *ev.CustomerInterested
		rec.CustomerInterested = &v
	}
	return true
}

// End moves active → ended. Callers invoke this both on a successful
// end-call request and when the remote room no longer exists, which counts
// as natural termination.
func (m *Machine) End(rec *models.CallRecord) bool {
	if m.state != StateActive {
		return false
	}
	m.state = StateEnded
	rec.Status = models.CallStatusEnded
	return true
}
