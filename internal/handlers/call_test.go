package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callpilot/callpilot-backend/internal/callagent"
	"github.com/callpilot/callpilot-backend/internal/history"
	"github.com/callpilot/callpilot-backend/internal/models"
	"github.com/callpilot/callpilot-backend/internal/orchestrator"
	"github.com/callpilot/callpilot-backend/internal/storage"
)

type stubAgent struct {
	makeCallResp *callagent.MakeCallResponse
	makeCallErr  error
}

func (s *stubAgent) MakeCall(ctx context.Context, phoneNumber, customInstructions string) (*callagent.MakeCallResponse, error) {
	if s.makeCallErr != nil {
		return nil, s.makeCallErr
	}
	return s.makeCallResp, nil
}

func (s *stubAgent) CallStatus(ctx context.Context, roomName string) (json.RawMessage, error) {
	return json.RawMessage(`{"status":"in-progress"}`), nil
}

func (s *stubAgent) EndCall(ctx context.Context, roomName string) error {
	return nil
}

func newTestApp(agent orchestrator.CallAgent) (*fiber.App, storage.Store) {
	store := storage.NewDemoStore()
	orc := orchestrator.New(agent, history.NewStore(history.NewMemoryPersister()))
	handler := NewCallHandler(orc, store)

	app := fiber.New()
	app.Post("/api/calls", handler.StartCall)
	app.Get("/api/calls/status", handler.GetStatus)
	app.Delete("/api/calls/active", handler.EndCall)
	app.Get("/api/calls/history", handler.GetHistory)
	app.Get("/api/calls/live", handler.GetLive)
	return app, store
}

func demoProductID(t *testing.T, store storage.Store, name string) string {
	t.Helper()
	products, err := store.GetAllProducts()
	require.NoError(t, err)
	for _, p := range products {
		if p.Name == name {
			return p.ProductID
		}
	}
	t.Fatalf("demo product %q not seeded", name)
	return ""
}

func TestStartCallHandlerSuccess(t *testing.T) {
	app, store := newTestApp(&stubAgent{
		makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"},
	})
	productID := demoProductID(t, store, "Roofing Services")

	body := `{"phone_number":"+1555000111","product_id":"` + productID + `","notes":"evening"}`
	req := httptest.NewRequest("POST", "/api/calls", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var result struct {
		Call models.CallRecord `json:"call"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "c1", result.Call.CallID)
	assert.Equal(t, models.CallStatusActive, result.Call.Status)
	assert.Equal(t, "Roofing Services", result.Call.ProductName)
}

func TestStartCallHandlerValidation(t *testing.T) {
	app, store := newTestApp(&stubAgent{})
	productID := demoProductID(t, store, "Roofing Services")

	// Empty phone number
	req := httptest.NewRequest("POST", "/api/calls",
		strings.NewReader(`{"phone_number":"","product_id":"`+productID+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Missing product
	req = httptest.NewRequest("POST", "/api/calls",
		strings.NewReader(`{"phone_number":"+1555000111"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Unknown product
	req = httptest.NewRequest("POST", "/api/calls",
		strings.NewReader(`{"phone_number":"+1555000111","product_id":"PRD99999"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStartCallHandlerInitiationFailureStillCreated(t *testing.T) {
	app, store := newTestApp(&stubAgent{makeCallErr: errors.New("refused")})
	productID := demoProductID(t, store, "Roofing Services")

	req := httptest.NewRequest("POST", "/api/calls",
		strings.NewReader(`{"phone_number":"+1555000111","product_id":"`+productID+`"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	// The attempt is recorded even though initiation failed
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var result struct {
		Call models.CallRecord `json:"call"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, models.CallStatusFailed, result.Call.Status)
	assert.Empty(t, result.Call.CallID)
}

func TestStatusAndEndWithoutActiveCall(t *testing.T) {
	app, _ := newTestApp(&stubAgent{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/calls/status", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/api/calls/active", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestHistoryEndpointGroupsByPhone(t *testing.T) {
	app, store := newTestApp(&stubAgent{
		makeCallResp: &callagent.MakeCallResponse{CallID: "c1", RoomName: "r1"},
	})
	productID := demoProductID(t, store, "Solar Panel Installation")

	req := httptest.NewRequest("POST", "/api/calls",
		strings.NewReader(`{"phone_number":"+1555000111","product_id":"`+productID+`"}`))
	req.Header.Set("Content-Type", "application/json")
	_, err := app.Test(req)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/calls/history", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result struct {
		History map[string][]models.CallRecord `json:"history"`
		Count   int                            `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result.Count)
	require.Len(t, result.History["+1555000111"], 1)
}
