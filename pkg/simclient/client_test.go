package simclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-mattersim/internal/httpc"
	"github.com/teslashibe/go-mattersim/pkg/camera"
	"github.com/teslashibe/go-mattersim/pkg/connectivity"
	"github.com/teslashibe/go-mattersim/pkg/connectivity/connectivitytest"
	"github.com/teslashibe/go-mattersim/pkg/protocol"
	"github.com/teslashibe/go-mattersim/pkg/web"
)

// startServer runs a server over a four-viewpoint scan and returns its base URL.
func startServer(t *testing.T) string {
	t.Helper()
	g := connectivitytest.New("scan").
		Add("o", 0, 0, 1.5).
		Add("n", 0, 2, 1.5).
		Add("e", 2, 0, 1.5).
		Add("x", -2, 0, 1.5).
		Exclude("x").
		Graph()

	cfg := web.DefaultConfig()
	cfg.Graphs = connectivity.NewCache(connectivitytest.NewSource(g))
	cfg.Camera = camera.TestConfig()
	cfg.ListScans = func(ctx context.Context) ([]string, error) {
		return []string{"scan"}, nil
	}
	s := web.NewServer(cfg)
	t.Cleanup(func() { s.Shutdown() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(ln)
	return "http://" + ln.Addr().String()
}

func TestClient_Episode(t *testing.T) {
	ctx := context.Background()
	c := New(startServer(t))

	require.NoError(t, c.Health(ctx))

	scans, err := c.Scans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"scan"}, scans)

	seed := int64(5)
	info, err := c.CreateSession(ctx, SessionOptions{Seed: &seed})
	require.NoError(t, err)
	assert.Equal(t, "initialized", info.Lifecycle)
	assert.Equal(t, seed, info.Seed)

	st, err := c.NewEpisode(ctx, info.ID, "scan", "o", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "o", st.Location.ID)
	assert.Equal(t, 0, st.Step)
	require.Len(t, st.Navigable, 2)
	assert.Equal(t, "n", st.Navigable[1].ID)

	st, err = c.Action(ctx, info.ID, 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "n", st.Location.ID)
	assert.Equal(t, 1, st.Step)

	st, err = c.State(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Step)

	frame, err := c.Frame(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "bgr", frame.Format)
	assert.Equal(t, 200, frame.Width)
	assert.Equal(t, 100, frame.Height)
	assert.Equal(t, 1, frame.Step)
	assert.Len(t, frame.Data, 200*100*3)

	require.NoError(t, c.DeleteSession(ctx, info.ID))
	_, err = c.Session(ctx, info.ID)
	var se *httpc.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := New(startServer(t)).WithHTTPClient(httpc.NewClient(5 * time.Second))

	info, err := c.CreateSession(ctx, SessionOptions{})
	require.NoError(t, err)

	var se *httpc.StatusError
	_, err = c.State(ctx, info.ID)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.StatusCode)

	_, err = c.NewEpisode(ctx, info.ID, "scan", "nowhere", 0, 0)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)

	_, err = c.NewEpisode(ctx, info.ID, "scan", "o", 0, 0)
	require.NoError(t, err)
	_, err = c.Action(ctx, info.ID, 7, 0, 0)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, string(se.Body), protocol.CodeIndexOutOfRange)
}

func TestControl(t *testing.T) {
	ctx := context.Background()
	base := startServer(t)
	c := New(base)

	info, err := c.CreateSession(ctx, SessionOptions{})
	require.NoError(t, err)

	ctl, err := DialControl(ctx, base, info.ID)
	require.NoError(t, err)
	defer ctl.Close()

	_, err = ctl.Ping("p1")
	require.NoError(t, err)

	_, err = ctl.State()
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, protocol.CodeInvalidState, re.Code)

	st, err := ctl.NewEpisode("scan", "o", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "o", st.Location.ID)

	st, err = ctl.Action(1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "n", st.Location.ID)

	st, frame, err := ctl.StateWithFrame()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Step)
	assert.Equal(t, 1, frame.Step)
	data, err := frame.DecodeFrameData()
	require.NoError(t, err)
	assert.Len(t, data, frame.Width*frame.Height*3)

	_, err = ctl.Action(-1, 0, 0)
	require.True(t, errors.As(err, &re))
	assert.Equal(t, protocol.CodeIndexOutOfRange, re.Code)

	// The REST view agrees with the socket
	rest, err := c.State(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "n", rest.Location.ID)
}

func TestDialControl_UnknownSession(t *testing.T) {
	ctl, err := DialControl(context.Background(), startServer(t), "missing")
	require.NoError(t, err)
	defer ctl.Close()

	// The server reports the error unprompted and hangs up
	msg, err := ctl.read()
	require.NoError(t, err)
	var re *RemoteError
	require.True(t, errors.As(remoteError(msg), &re))
	assert.Equal(t, protocol.CodeNotFound, re.Code)
}
