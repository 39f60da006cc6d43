package web

import (
	"fmt"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-mattersim/pkg/protocol"
	"github.com/teslashibe/go-mattersim/pkg/sim"
)

// controlHandler serves the agent socket of a session: each request message
// gets exactly one reply (state, error or pong), plus a frame message after
// the state when a get_state asks for one.
func controlHandler(s *Server) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		id := c.Params("id")
		sess, err := s.session(id)
		if err != nil {
			s.reply(c, errorMessage(err))
			return
		}

		logger := s.logger.With("session", id)
		logger.Info("agent connected")
		defer logger.Info("agent disconnected")

		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			for _, out := range s.control(sess, data) {
				if err := s.reply(c, out); err != nil {
					logger.Warn("control write failed", "error", err)
					return
				}
			}
		}
	})
}

// control handles one request and returns the replies to send.
func (s *Server) control(sess *Session, data []byte) []*protocol.Message {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return []*protocol.Message{errorMessage(fmt.Errorf("%w: %v", errBadRequest, err))}
	}

	var (
		fn        func(*sim.Simulator) error
		withFrame bool
		mutates   bool
	)

	switch msg.Type {
	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			ping = &protocol.PingData{}
		}
		pong, err := protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return []*protocol.Message{errorMessage(err)}
		}
		return []*protocol.Message{pong}

	case protocol.TypeNewEpisode:
		req, err := msg.GetNewEpisodeRequest()
		if err != nil {
			return []*protocol.Message{errorMessage(fmt.Errorf("%w: %v", errBadRequest, err))}
		}
		fn = func(sm *sim.Simulator) error {
			return sm.NewEpisode(s.ctx, req.ScanID, req.ViewpointID, req.Heading, req.Elevation)
		}
		mutates = true

	case protocol.TypeAction:
		req, err := msg.GetActionRequest()
		if err != nil {
			return []*protocol.Message{errorMessage(fmt.Errorf("%w: %v", errBadRequest, err))}
		}
		fn = func(sm *sim.Simulator) error {
			return sm.MakeAction(req.Index, req.HeadingChange, req.ElevationChange)
		}
		mutates = true

	case protocol.TypeGetState:
		req, err := msg.GetStateRequest()
		if err != nil {
			return []*protocol.Message{errorMessage(fmt.Errorf("%w: %v", errBadRequest, err))}
		}
		withFrame = req.WithFrame

	default:
		return []*protocol.Message{errorMessage(fmt.Errorf("%w: unknown message type %q", errBadRequest, msg.Type))}
	}

	st, err := sess.do(s.ctx, fn)
	if err != nil {
		return []*protocol.Message{errorMessage(err)}
	}
	if mutates {
		s.publish(sess, st)
	}

	out := make([]*protocol.Message, 0, 2)
	stateMsg, err := protocol.NewStateMessage(stateData(st))
	if err != nil {
		return []*protocol.Message{errorMessage(err)}
	}
	out = append(out, stateMsg)

	if withFrame {
		data, format, err := s.encodeFrame(st)
		if err != nil {
			return append(out, errorMessage(err))
		}
		frame, err := protocol.NewFrameMessage(st.RGB.Width, st.RGB.Height, format, data, st.Step)
		if err != nil {
			return append(out, errorMessage(err))
		}
		out = append(out, frame)
	}
	return out
}

func (s *Server) reply(c *websocket.Conn, msg *protocol.Message) error {
	if msg == nil {
		return nil
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func errorMessage(err error) *protocol.Message {
	_, code := errorStatus(err)
	msg, merr := protocol.NewErrorMessage(code, err.Error())
	if merr != nil {
		return nil
	}
	return msg
}
