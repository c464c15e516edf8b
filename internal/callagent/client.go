package callagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRoomNotFound reports that the remote session no longer exists. Callers
// treat it as natural termination, not a failure.
var ErrRoomNotFound = errors.New("room does not exist")

// Client talks to the external call-agent service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a call-agent client for the given base URL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// MakeCallRequest is the initiation payload
type MakeCallRequest struct {
	PhoneNumber        string `json:"phone_number"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// MakeCallResponse is the initiation acknowledgment
type MakeCallResponse struct {
	CallID   string `json:"call_id"`
	RoomName string `json:"room_name"`
}

// MakeCall asks the agent to place an outbound call
func (c *Client) MakeCall(ctx context.Context, phoneNumber, customInstructions string) (*MakeCallResponse, error) {
	body, err := json.Marshal(MakeCallRequest{
		PhoneNumber:        phoneNumber,
		CustomInstructions: customInstructions,
	})
	if err != nil {
		return nil, fmt.Errorf("encode make-call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/make-call", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("make-call request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("make-call failed: %s: %s", resp.Status, readBody(resp.Body))
	}

	var ack MakeCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("decode make-call response: %w", err)
	}
	// An acknowledgment without identifiers is useless: nothing to route
	// feed events or follow-up requests against
	if ack.CallID == "" || ack.RoomName == "" {
		return nil, fmt.Errorf("malformed make-call acknowledgment: call_id=%q room_name=%q", ack.CallID, ack.RoomName)
	}
	return &ack, nil
}

// CallStatus pulls the current status snapshot for a room. The snapshot is
// returned as raw JSON; the feed is the typed source of truth.
func (c *Client) CallStatus(ctx context.Context, roomName string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/call-status/"+roomName, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call-status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("call-status failed: %s: %s", resp.Status, readBody(resp.Body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read call-status response: %w", err)
	}
	return json.RawMessage(data), nil
}

// EndCall asks the agent to terminate the call in a room. A 4xx whose body
// reports a missing room returns ErrRoomNotFound.
//
// TODO: switch to a structured error code once the call-agent service grows
// one; the substring match below mirrors its current error body.
func (c *Client) EndCall(ctx context.Context, roomName string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/end-call/"+roomName, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("end-call request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	raw := readBody(resp.Body)
	var errBody struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(raw), &errBody); err == nil &&
		strings.Contains(errBody.Detail, "room does not exist") {
		return ErrRoomNotFound
	}
	return fmt.Errorf("end-call failed: %s: %s", resp.Status, raw)
}

func readBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	return string(data)
}
