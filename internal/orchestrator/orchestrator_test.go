package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callpilot/callpilot-backend/internal/callagent"
	"github.com/callpilot/callpilot-backend/internal/history"
	"github.com/callpilot/callpilot-backend/internal/models"
	"github.com/callpilot/callpilot-backend/internal/stream"
)

type fakeAgent struct {
	makeCallResp *callagent.MakeCallResponse
	makeCallErr  error
	statusResp   json.RawMessage
	statusErr    error
	endCallErr   error

	makeCalls  int
	endedRooms []string
}

func (f *fakeAgent) MakeCall(ctx context.Context, phoneNumber, customInstructions string) (*callagent.MakeCallResponse, error) {
	f.makeCalls++
	if f.makeCallErr != nil {
		return nil, f.makeCallErr
	}
	return f.makeCallResp, nil
}

func (f *fakeAgent) CallStatus(ctx context.Context, roomName string) (json.RawMessage, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.statusResp, nil
}

func (f *fakeAgent) EndCall(ctx context.Context, roomName string) error {
	f.endedRooms = append(f.endedRooms, roomName)
	return f.endCallErr
}

type recordingSender struct {
	sent []stream.OutboundMessage
}

func (r *recordingSender) Send(msg stream.OutboundMessage) {
	r.sent = append(r.sent, msg)
}

func boolPtr(b bool) *bool { return &b }

func newOrchestrator(agent *fakeAgent) *Orchestrator {
	return New(agent, history.NewStore(history.NewMemoryPersister()))
}

func startActiveCall(t *testing.T, o *Orchestrator) models.CallRecord {
	t.Helper()
	rec, err := o.StartCall(context.Background(), "+1555000111", "Roofing Services", "Pitch the inspection", "")
	require.NoError(t, err)
	require.Equal(t, models.CallStatusActive, rec.Status)
	return rec
}

func TestStartCallValidation(t *testing.T) {
	o := newOrchestrator(&fakeAgent{})

	var verr *ValidationError

	_, err := o.StartCall(context.Background(), "  ", "Roofing Services", "", "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone_number", verr.Field)

	_, err = o.StartCall(context.Background(), "+1555000111", "", "", "")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "product", verr.Field)

	// Validation failures leave no trace in history
	assert.Equal(t, 0, o.History().Len())
}

func TestStartCallSuccess(t *testing.T) {
	agent := &fakeAgent{makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"}}
	o := newOrchestrator(agent)

	rec, err := o.StartCall(context.Background(), "+1555000111", "Roofing Services", "Pitch", "call after 5pm")
	require.NoError(t, err)

	assert.Equal(t, models.CallStatusActive, rec.Status)
	assert.Equal(t, "c1", rec.CallID)
	assert.Equal(t, "r1", rec.RoomName)
	assert.Equal(t, "+1555000111", rec.PhoneNumber)
	assert.Equal(t, "call after 5pm", rec.Notes)
	assert.NotEmpty(t, rec.HistoryID)

	// Exactly one history entry, and the live session points at the call
	assert.Equal(t, 1, o.History().Len())
	live := o.Live()
	assert.Equal(t, "c1", live.ActiveCallID)
	assert.Equal(t, "r1", live.ActiveRoomName)
	assert.Empty(t, live.LiveTranscript)
}

func TestStartCallFailureYieldsFailedRecord(t *testing.T) {
	agent := &fakeAgent{makeCallErr: errors.New("connection refused")}
	o := newOrchestrator(agent)

	rec, err := o.StartCall(context.Background(), "+1555000111", "Roofing Services", "", "")

	// Transport failures are absorbed, never raised past validation
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusFailed, rec.Status)
	assert.Empty(t, rec.CallID)

	// The attempt is still visible in history
	assert.Equal(t, 1, o.History().Len())
	live := o.Live()
	assert.Empty(t, live.ActiveCallID)
}

func TestStartCallResetsLiveTranscript(t *testing.T) {
	agent := &fakeAgent{makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"}}
	o := newOrchestrator(agent)
	startActiveCall(t, o)

	o.HandleStreamEvent(models.CallEvent{ID: "c1", Conversation: []models.Turn{
		{Role: models.RoleAssistant, Content: "Hi"},
	}})
	require.NotEmpty(t, o.Live().LiveTranscript)

	agent.makeCallResp = &callagent.MakeCallResponse{CallID: "c2", RoomName: "r2"}
	_, err := o.StartCall(context.Background(), "+1555000222", "Roofing Services", "", "")
	require.NoError(t, err)

	live := o.Live()
	assert.Equal(t, "c2", live.ActiveCallID)
	assert.Empty(t, live.LiveTranscript)
}

func TestStreamEventUpdatesMatchingRecord(t *testing.T) {
	agent := &fakeAgent{makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"}}
	o := newOrchestrator(agent)
	startActiveCall(t, o)

	o.HandleStreamEvent(models.CallEvent{
		ID:                 "c1",
		Status:             "completed",
		Conversation:       []models.Turn{{Role: models.RoleAssistant, Content: "Hi"}},
		CustomerInterested: boolPtr(true),
	})

	rec, ok := o.History().FindByCallID("c1")
	require.True(t, ok)
	assert.Equal(t, "completed", rec.Status)
	require.Len(t, rec.Transcript, 1)
	assert.Equal(t, "Hi", rec.Transcript[0].Content)
	require.NotNil(t, rec.CustomerInterested)
	assert.True(t, *rec.CustomerInterested)

	live := o.Live()
	assert.Equal(t, "completed", live.LiveStatus)
	require.Len(t, live.LiveTranscript, 1)
}

func TestStreamEventLastSnapshotWins(t *testing.T) {
	agent := &fakeAgent{makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"}}
	o := newOrchestrator(agent)
	startActiveCall(t, o)

	o.HandleStreamEvent(models.CallEvent{ID: "c1", Conversation: []models.Turn{
		{Role: models.RoleAssistant, Content: "Hello"},
	}})
	o.HandleStreamEvent(models.CallEvent{ID: "c1", Conversation: []models.Turn{
		{Role: models.RoleAssistant, Content: "Hello"},
		{Role: models.RoleUser, Content: "Not interested"},
	}})
	// A snapshot-free event leaves the transcript alone
	o.HandleStreamEvent(models.CallEvent{ID: "c1", Status: "wrapping-up"})

	rec, ok := o.History().FindByCallID("c1")
	require.True(t, ok)
	require.Len(t, rec.Transcript, 2)
	assert.Equal(t, "Not interested", rec.Transcript[1].Content)
	assert.Equal(t, "wrapping-up", rec.Status)
}

func TestStreamEventUnknownCallIDIsIgnored(t *testing.T) {
	agent := &fakeAgent{makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"}}
	o := newOrchestrator(agent)
	before := startActiveCall(t, o)

	o.HandleStreamEvent(models.CallEvent{ID: "ghost", Status: "completed"})
	o.HandleStreamEvent(models.CallEvent{Status: "completed"}) // absent id

	rec, ok := o.History().FindByCallID("c1")
	require.True(t, ok)
	assert.Equal(t, before.Status, rec.Status)
	assert.Empty(t, rec.Transcript)
}

func TestGetStatusRequiresActiveCall(t *testing.T) {
	o := newOrchestrator(&fakeAgent{})
	_, err := o.GetStatus(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveCall)
}

func TestGetStatusReturnsSnapshot(t *testing.T) {
	agent := &fakeAgent{
		makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"},
		statusResp:   json.RawMessage(`{"status":"in-progress"}`),
	}
	o := newOrchestrator(agent)
	startActiveCall(t, o)

	snapshot, err := o.GetStatus(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"in-progress"}`, string(snapshot))
}

func TestGetStatusSurfacesTransportError(t *testing.T) {
	agent := &fakeAgent{
		makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"},
		statusErr:    errors.New("timeout"),
	}
	o := newOrchestrator(agent)
	startActiveCall(t, o)

	_, err := o.GetStatus(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)

	// The active call survives a failed status pull
	assert.Equal(t, "r1", o.Live().ActiveRoomName)
}

func TestGetStatusNudgesFeedWhenConnected(t *testing.T) {
	agent := &fakeAgent{
		makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"},
		statusResp:   json.RawMessage(`{}`),
	}
	o := newOrchestrator(agent)
	sender := &recordingSender{}
	o.AttachStream(sender)
	startActiveCall(t, o)

	// Disconnected: no nudge
	_, err := o.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sender.sent)

	o.HandleConnectionChange(true)
	_, err = o.GetStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, stream.ActionGetStatus, sender.sent[0].Action)
}

func TestEndCallRequiresActiveCall(t *testing.T) {
	o := newOrchestrator(&fakeAgent{})
	assert.ErrorIs(t, o.EndCall(context.Background()), ErrNoActiveCall)
}

func TestEndCallSuccess(t *testing.T) {
	agent := &fakeAgent{makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"}}
	o := newOrchestrator(agent)
	startActiveCall(t, o)

	require.NoError(t, o.EndCall(context.Background()))
	assert.Equal(t, []string{"r1"}, agent.endedRooms)

	rec, ok := o.History().FindByCallID("c1")
	require.True(t, ok)
	assert.Equal(t, models.CallStatusEnded, rec.Status)

	live := o.Live()
	assert.Empty(t, live.ActiveCallID)
	assert.Empty(t, live.ActiveRoomName)
	assert.Empty(t, live.LiveStatus)
}

func TestEndCallRoomGoneCountsAsEnded(t *testing.T) {
	agent := &fakeAgent{
		makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"},
		endCallErr:   callagent.ErrRoomNotFound,
	}
	o := newOrchestrator(agent)
	startActiveCall(t, o)

	// The room expired on its own: that is termination, not an error
	require.NoError(t, o.EndCall(context.Background()))

	rec, ok := o.History().FindByCallID("c1")
	require.True(t, ok)
	assert.Equal(t, models.CallStatusEnded, rec.Status)
	assert.Empty(t, o.Live().ActiveRoomName)
}

func TestEndCallOtherFailureLeavesStateUnchanged(t *testing.T) {
	agent := &fakeAgent{
		makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"},
		endCallErr:   errors.New("gateway timeout"),
	}
	o := newOrchestrator(agent)
	startActiveCall(t, o)

	err := o.EndCall(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)

	// Still active, still routable
	rec, ok := o.History().FindByCallID("c1")
	require.True(t, ok)
	assert.Equal(t, models.CallStatusActive, rec.Status)
	assert.Equal(t, "r1", o.Live().ActiveRoomName)

	// And a later event still lands
	o.HandleStreamEvent(models.CallEvent{ID: "c1", Status: "completed"})
	rec, _ = o.History().FindByCallID("c1")
	assert.Equal(t, "completed", rec.Status)
}

func TestStaleEventAfterEndIsIgnored(t *testing.T) {
	agent := &fakeAgent{makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"}}
	o := newOrchestrator(agent)
	startActiveCall(t, o)
	require.NoError(t, o.EndCall(context.Background()))

	o.HandleStreamEvent(models.CallEvent{ID: "c1", Status: "late-news", Conversation: []models.Turn{
		{Role: models.RoleAssistant, Content: "ghost"},
	}})

	rec, ok := o.History().FindByCallID("c1")
	require.True(t, ok)
	assert.Equal(t, models.CallStatusEnded, rec.Status)
	assert.Empty(t, rec.Transcript)
}

func TestConnectionChangeIsMirrored(t *testing.T) {
	o := newOrchestrator(&fakeAgent{})
	assert.False(t, o.Live().Connected)

	o.HandleConnectionChange(true)
	assert.True(t, o.Live().Connected)

	o.HandleConnectionChange(false)
	assert.False(t, o.Live().Connected)
}
