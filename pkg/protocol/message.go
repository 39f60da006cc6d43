// Package protocol defines the WebSocket message types spoken between a
// simulator server and its remote agents.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Agent → Server messages
	TypeNewEpisode MessageType = "new_episode" // Start an episode
	TypeAction     MessageType = "action"      // Move and turn
	TypeGetState   MessageType = "get_state"   // Request a state snapshot

	// Server → Agent messages
	TypeState MessageType = "state" // Episode state
	TypeFrame MessageType = "frame" // Rendered frame
	TypeError MessageType = "error" // Rejected request

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Error codes carried by ErrorData.
const (
	CodeInvalidState     = "invalid_state"
	CodeInvalidViewpoint = "invalid_viewpoint"
	CodeIndexOutOfRange  = "index_out_of_range"
	CodeUnknownViewpoint = "unknown_viewpoint"
	CodeIOFailure        = "io_failure"
	CodeBadRequest       = "bad_request"
	CodeNotFound         = "not_found"
	CodeInternal         = "internal"
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Agent → Server Message Types
// =============================================================================

// NewEpisodeRequest starts an episode. An empty ViewpointID asks the server
// for a seeded random spawn. Angles are in radians.
type NewEpisodeRequest struct {
	ScanID      string  `json:"scan_id"`
	ViewpointID string  `json:"viewpoint_id,omitempty"`
	Heading     float64 `json:"heading"`
	Elevation   float64 `json:"elevation"`
}

// ActionRequest selects a navigable location and turns the camera.
// Angles are in radians.
type ActionRequest struct {
	Index           int     `json:"index"`
	HeadingChange   float64 `json:"heading_change"`
	ElevationChange float64 `json:"elevation_change"`
}

// GetStateRequest asks for the current state, optionally with a frame.
type GetStateRequest struct {
	WithFrame bool `json:"with_frame,omitempty"`
}

// =============================================================================
// Server → Agent Message Types
// =============================================================================

// ViewpointData is one viewpoint of a scan
type ViewpointData struct {
	ID string  `json:"viewpoint_id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

// StateData is an episode snapshot. Navigable[0] is the current viewpoint.
type StateData struct {
	ScanID    string          `json:"scan_id"`
	Step      int             `json:"step"`
	Heading   float64         `json:"heading"`   // Radians, [0, 2π)
	Elevation float64         `json:"elevation"` // Radians
	Location  ViewpointData   `json:"location"`
	Navigable []ViewpointData `json:"navigable"`
}

// FrameData contains a rendered frame
type FrameData struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"` // "jpeg", "bgr"
	Data   string `json:"data"`   // base64 encoded
	Step   int    `json:"step"`
}

// ErrorData reports why a request was rejected
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
