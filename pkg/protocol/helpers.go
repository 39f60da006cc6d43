package protocol

import (
	"encoding/base64"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewEpisodeMessage creates a new_episode request
func NewEpisodeMessage(scanID, viewpointID string, heading, elevation float64) (*Message, error) {
	return NewMessage(TypeNewEpisode, NewEpisodeRequest{
		ScanID:      scanID,
		ViewpointID: viewpointID,
		Heading:     heading,
		Elevation:   elevation,
	})
}

// NewActionMessage creates an action request
func NewActionMessage(index int, headingChange, elevationChange float64) (*Message, error) {
	return NewMessage(TypeAction, ActionRequest{
		Index:           index,
		HeadingChange:   headingChange,
		ElevationChange: elevationChange,
	})
}

// NewGetStateMessage creates a get_state request
func NewGetStateMessage(withFrame bool) (*Message, error) {
	return NewMessage(TypeGetState, GetStateRequest{WithFrame: withFrame})
}

// NewStateMessage creates a state message
func NewStateMessage(state StateData) (*Message, error) {
	return NewMessage(TypeState, state)
}

// NewFrameMessage creates a frame message from encoded image data
func NewFrameMessage(width, height int, format string, data []byte, step int) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:  width,
		Height: height,
		Format: format,
		Data:   base64.StdEncoding.EncodeToString(data),
		Step:   step,
	})
}

// NewErrorMessage creates an error message
func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Code: code, Message: message})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID: id,
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetNewEpisodeRequest extracts a new_episode request from a message
func (m *Message) GetNewEpisodeRequest() (*NewEpisodeRequest, error) {
	var data NewEpisodeRequest
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetActionRequest extracts an action request from a message
func (m *Message) GetActionRequest() (*ActionRequest, error) {
	var data ActionRequest
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateRequest extracts a get_state request from a message
func (m *Message) GetStateRequest() (*GetStateRequest, error) {
	var data GetStateRequest
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts state data from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
