// Package simclient talks to a mattersim server over its REST API and the
// per-session control socket.
package simclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/go-mattersim/internal/httpc"
	"github.com/teslashibe/go-mattersim/pkg/protocol"
)

// Client is a REST client for one server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpc.Client,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// SessionInfo describes a server session.
type SessionInfo struct {
	ID        string                 `json:"id"`
	Created   time.Time              `json:"created"`
	Lifecycle string                 `json:"lifecycle"`
	Seed      int64                  `json:"seed"`
	Camera    map[string]interface{} `json:"camera"`
	Watchers  int                    `json:"watchers"`
}

// SessionOptions configures a new session. Camera takes the same keys as the
// server's camera config, including "preset" and "fov" in degrees.
type SessionOptions struct {
	Camera map[string]interface{} `json:"camera,omitempty"`
	Seed   *int64                 `json:"seed,omitempty"`
}

// Frame is an image fetched from a session.
type Frame struct {
	Width  int
	Height int
	Step   int
	// Format is "jpeg" or "bgr"
	Format string
	Data   []byte
}

func (c *Client) url(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/api/" + strings.Join(escaped, "/")
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return httpc.DoJSON(ctx, c.http, http.MethodGet, c.url("health"), nil, nil)
}

// Scans lists the scans the server can load.
func (c *Client) Scans(ctx context.Context) ([]string, error) {
	var out struct {
		Scans []string `json:"scans"`
	}
	if err := httpc.DoJSON(ctx, c.http, http.MethodGet, c.url("scans"), nil, &out); err != nil {
		return nil, err
	}
	return out.Scans, nil
}

// CreateSession creates and initializes a simulator on the server.
func (c *Client) CreateSession(ctx context.Context, opts SessionOptions) (*SessionInfo, error) {
	var info SessionInfo
	if err := httpc.DoJSON(ctx, c.http, http.MethodPost, c.url("sessions"), opts, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Session describes an existing session.
func (c *Client) Session(ctx context.Context, id string) (*SessionInfo, error) {
	var info SessionInfo
	if err := httpc.DoJSON(ctx, c.http, http.MethodGet, c.url("sessions", id), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteSession closes a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return httpc.DoJSON(ctx, c.http, http.MethodDelete, c.url("sessions", id), nil, nil)
}

// NewEpisode starts an episode. Angles are in radians.
func (c *Client) NewEpisode(ctx context.Context, id, scanID, viewpointID string, heading, elevation float64) (*protocol.StateData, error) {
	req := protocol.NewEpisodeRequest{
		ScanID:      scanID,
		ViewpointID: viewpointID,
		Heading:     heading,
		Elevation:   elevation,
	}
	var st protocol.StateData
	if err := httpc.DoJSON(ctx, c.http, http.MethodPost, c.url("sessions", id, "episodes"), req, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Action moves to navigable location index and turns.
func (c *Client) Action(ctx context.Context, id string, index int, headingChange, elevationChange float64) (*protocol.StateData, error) {
	req := protocol.ActionRequest{
		Index:           index,
		HeadingChange:   headingChange,
		ElevationChange: elevationChange,
	}
	var st protocol.StateData
	if err := httpc.DoJSON(ctx, c.http, http.MethodPost, c.url("sessions", id, "actions"), req, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// State returns the current state.
func (c *Client) State(ctx context.Context, id string) (*protocol.StateData, error) {
	var st protocol.StateData
	if err := httpc.DoJSON(ctx, c.http, http.MethodGet, c.url("sessions", id, "state"), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Frame fetches the current frame.
func (c *Client) Frame(ctx context.Context, id string) (*Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("sessions", id, "frame"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &httpc.StatusError{StatusCode: resp.StatusCode, Body: data}
	}

	f := &Frame{Format: "bgr", Data: data}
	if resp.Header.Get("Content-Type") == "image/jpeg" {
		f.Format = "jpeg"
	}
	f.Width, _ = strconv.Atoi(resp.Header.Get("X-Frame-Width"))
	f.Height, _ = strconv.Atoi(resp.Header.Get("X-Frame-Height"))
	f.Step, _ = strconv.Atoi(resp.Header.Get("X-Frame-Step"))
	return f, nil
}
