package web

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-mattersim/pkg/camera"
	"github.com/teslashibe/go-mattersim/pkg/connectivity"
	"github.com/teslashibe/go-mattersim/pkg/protocol"
	"github.com/teslashibe/go-mattersim/pkg/sim"
)

// errorStatus maps an error to an HTTP status and protocol error code.
func errorStatus(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.Is(err, errNoSession):
		return fiber.StatusNotFound, protocol.CodeNotFound
	case errors.Is(err, errTooMany):
		return fiber.StatusServiceUnavailable, protocol.CodeInternal
	case errors.Is(err, errBadRequest), errors.Is(err, sim.ErrInvalidConfig), errors.Is(err, sim.ErrInvalidArgument):
		return fiber.StatusBadRequest, protocol.CodeBadRequest
	case errors.Is(err, sim.ErrInvalidState), errors.Is(err, errSessionEnded):
		return fiber.StatusConflict, protocol.CodeInvalidState
	case errors.Is(err, sim.ErrInvalidViewpoint):
		return fiber.StatusBadRequest, protocol.CodeInvalidViewpoint
	case errors.Is(err, sim.ErrIndexOutOfRange):
		return fiber.StatusBadRequest, protocol.CodeIndexOutOfRange
	case errors.Is(err, connectivity.ErrUnknownViewpoint):
		return fiber.StatusInternalServerError, protocol.CodeUnknownViewpoint
	case errors.Is(err, connectivity.ErrIOFailure):
		return fiber.StatusBadGateway, protocol.CodeIOFailure
	case errors.As(err, &fe):
		return fe.Code, protocol.CodeBadRequest
	default:
		return fiber.StatusInternalServerError, protocol.CodeInternal
	}
}

// errorHandler renders every handler error as {"error", "code"}.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	s.sessionsMu.RLock()
	count := len(s.sessions)
	s.sessionsMu.RUnlock()
	return c.JSON(fiber.Map{"status": "ok", "sessions": count})
}

// handlePresets lists the camera presets
func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"presets": camera.Presets(),
		"names":   camera.PresetNames(),
	})
}

// handleScans lists the available scans
func (s *Server) handleScans(c *fiber.Ctx) error {
	scans, err := s.cfg.ListScans(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"scans": scans, "count": len(scans)})
}

// handleListSessions lists open sessions
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions := s.listSessions()
	return c.JSON(fiber.Map{"sessions": sessions, "count": len(sessions)})
}

// handleCreateSession creates and initializes a simulator
func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	var req CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	sess, err := s.createSession(req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sess.info())
}

// handleGetSession describes one session
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	sess, err := s.session(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(sess.info())
}

// handleDeleteSession closes a session
func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	if err := s.deleteSession(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleNewEpisode starts an episode and returns its first state
func (s *Server) handleNewEpisode(c *fiber.Ctx) error {
	sess, err := s.session(c.Params("id"))
	if err != nil {
		return err
	}

	var req protocol.NewEpisodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	st, err := sess.do(ctx, func(sm *sim.Simulator) error {
		return sm.NewEpisode(ctx, req.ScanID, req.ViewpointID, req.Heading, req.Elevation)
	})
	if err != nil {
		return err
	}
	s.publish(sess, st)
	return c.JSON(stateData(st))
}

// handleAction applies an action and returns the new state
func (s *Server) handleAction(c *fiber.Ctx) error {
	sess, err := s.session(c.Params("id"))
	if err != nil {
		return err
	}

	var req protocol.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	st, err := sess.do(c.UserContext(), func(sm *sim.Simulator) error {
		return sm.MakeAction(req.Index, req.HeadingChange, req.ElevationChange)
	})
	if err != nil {
		return err
	}
	s.publish(sess, st)
	return c.JSON(stateData(st))
}

// handleState returns the current state
func (s *Server) handleState(c *fiber.Ctx) error {
	sess, err := s.session(c.Params("id"))
	if err != nil {
		return err
	}
	st, err := sess.do(c.UserContext(), nil)
	if err != nil {
		return err
	}
	return c.JSON(stateData(st))
}

// handleFrame returns the current frame as JPEG, or raw BGR when no
// encoder is configured
func (s *Server) handleFrame(c *fiber.Ctx) error {
	sess, err := s.session(c.Params("id"))
	if err != nil {
		return err
	}
	st, err := sess.do(c.UserContext(), nil)
	if err != nil {
		return err
	}

	data, format, err := s.encodeFrame(st)
	if err != nil {
		return err
	}

	c.Set("X-Frame-Width", strconv.Itoa(st.RGB.Width))
	c.Set("X-Frame-Height", strconv.Itoa(st.RGB.Height))
	c.Set("X-Frame-Step", strconv.Itoa(st.Step))
	if format == "jpeg" {
		c.Set(fiber.HeaderContentType, "image/jpeg")
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
	return c.Send(data)
}
