package web

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-mattersim/pkg/hub"
	"github.com/teslashibe/go-mattersim/pkg/protocol"
)

// handleStreamWS subscribes a watcher to a session. The current state, if an
// episode is running, is sent first; every later change follows.
func (s *Server) handleStreamWS(c *websocket.Conn) {
	sess, err := s.session(c.Params("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	// Nothing else writes to c until the client pumps start
	if st, err := sess.do(context.Background(), nil); err == nil {
		if msg, err := protocol.NewStateMessage(stateData(st)); err == nil {
			if data, err := msg.Bytes(); err == nil {
				c.WriteMessage(websocket.TextMessage, data)
			}
		}
	}

	client, err := hub.NewClient(sess.hub, c)
	if err != nil {
		return
	}
	client.Run()
}

func writeError(c *websocket.Conn, err error) {
	_, code := errorStatus(err)
	msg, merr := protocol.NewErrorMessage(code, err.Error())
	if merr != nil {
		return
	}
	data, merr := msg.Bytes()
	if merr != nil {
		return
	}
	c.WriteMessage(websocket.TextMessage, data)
}
