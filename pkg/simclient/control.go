package simclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-mattersim/pkg/protocol"
)

// RemoteError is an error reply from the server.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrUnexpectedReply is returned when the server answers with the wrong
// message type.
var ErrUnexpectedReply = errors.New("simclient: unexpected reply")

// Control drives one session over its control socket. Calls are serialized;
// each request waits for its reply.
type Control struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	timeout time.Duration
}

// DialControl opens the control socket of session id. baseURL is the HTTP
// base of the server; the scheme is switched to ws or wss.
func DialControl(ctx context.Context, baseURL, id string) (*Control, error) {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u+"/ws/sessions/"+id+"/control", nil)
	if err != nil {
		return nil, fmt.Errorf("dial control: %w", err)
	}
	return &Control{conn: conn, timeout: 10 * time.Second}, nil
}

// Close closes the socket. The session stays open.
func (c *Control) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// NewEpisode starts an episode.
func (c *Control) NewEpisode(scanID, viewpointID string, heading, elevation float64) (*protocol.StateData, error) {
	msg, err := protocol.NewEpisodeMessage(scanID, viewpointID, heading, elevation)
	if err != nil {
		return nil, err
	}
	return c.state(msg)
}

// Action moves and turns.
func (c *Control) Action(index int, headingChange, elevationChange float64) (*protocol.StateData, error) {
	msg, err := protocol.NewActionMessage(index, headingChange, elevationChange)
	if err != nil {
		return nil, err
	}
	return c.state(msg)
}

// State returns the current state.
func (c *Control) State() (*protocol.StateData, error) {
	msg, err := protocol.NewGetStateMessage(false)
	if err != nil {
		return nil, err
	}
	return c.state(msg)
}

// StateWithFrame returns the current state and its frame.
func (c *Control) StateWithFrame() (*protocol.StateData, *protocol.FrameData, error) {
	msg, err := protocol.NewGetStateMessage(true)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(msg); err != nil {
		return nil, nil, err
	}
	st, err := c.readState()
	if err != nil {
		return nil, nil, err
	}
	reply, err := c.read()
	if err != nil {
		return nil, nil, err
	}
	if err := remoteError(reply); err != nil {
		return nil, nil, err
	}
	if reply.Type != protocol.TypeFrame {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Type)
	}
	frame, err := reply.GetFrameData()
	if err != nil {
		return nil, nil, err
	}
	return st, frame, nil
}

// Ping measures the round trip to the server.
func (c *Control) Ping(id string) (time.Duration, error) {
	msg, err := protocol.NewPingMessage(id)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	if err := c.write(msg); err != nil {
		return 0, err
	}
	reply, err := c.read()
	if err != nil {
		return 0, err
	}
	if reply.Type != protocol.TypePong {
		return 0, fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Type)
	}
	return time.Since(start), nil
}

func (c *Control) state(msg *protocol.Message) (*protocol.StateData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(msg); err != nil {
		return nil, err
	}
	return c.readState()
}

func (c *Control) readState() (*protocol.StateData, error) {
	reply, err := c.read()
	if err != nil {
		return nil, err
	}
	if err := remoteError(reply); err != nil {
		return nil, err
	}
	if reply.Type != protocol.TypeState {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Type)
	}
	return reply.GetStateData()
}

func (c *Control) write(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Control) read() (*protocol.Message, error) {
	c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.ParseMessage(data)
}

func remoteError(msg *protocol.Message) error {
	if msg.Type != protocol.TypeError {
		return nil
	}
	e, err := msg.GetErrorData()
	if err != nil {
		return err
	}
	return &RemoteError{Code: e.Code, Message: e.Message}
}
