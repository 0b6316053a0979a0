package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gaze/pkg/engine"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/session"
)

// errorResponse maps domain errors to HTTP status codes.
func errorResponse(c *fiber.Ctx, err error) error {
	var cfgErr *engine.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    engine.ErrInvalidConfig.Error(),
			"problems": cfgErr.Problems,
		})
	case errors.Is(err, session.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"uptime":   time.Since(s.started).Round(time.Second).String(),
		"sessions": s.registry.Len(),
	})
}

// handleGetConfig returns the shared engine configuration
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version": s.manager.Version(),
		"config":  s.manager.Get(),
	})
}

// handlePutConfig replaces the configuration. Omitted fields take their defaults.
func (s *Server) handlePutConfig(c *fiber.Ctx) error {
	cfg := engine.DefaultConfig()
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.manager.Set(cfg); err != nil {
		return errorResponse(c, err)
	}
	return s.handleGetConfig(c)
}

// handlePatchConfig applies a partial update, optionally starting from a preset
func (s *Server) handlePatchConfig(c *fiber.Ctx) error {
	params := make(map[string]interface{})
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := s.manager.Patch(params); err != nil {
		return errorResponse(c, err)
	}
	return s.handleGetConfig(c)
}

// handlePresets lists the named configurations
func (s *Server) handlePresets(c *fiber.Ctx) error {
	presets := make(fiber.Map)
	for _, name := range engine.PresetNames() {
		cfg, _ := engine.Preset(name)
		presets[name] = cfg
	}
	return c.JSON(presets)
}

// handleListSessions returns every running session
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions := s.registry.List()
	return c.JSON(fiber.Map{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// handleStats returns aggregate counters
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"sessions": s.registry.Stats(),
		"ingest":   s.ingest.GetStats(),
		"rtc":      fiber.Map{"peers": s.rtc.Count()},
		"viewers":  fiber.Map{"count": s.viewers.Total(), "dropped": s.viewers.Dropped()},
	})
}

// handleSessionStatus returns a session's latest tick
func (s *Server) handleSessionStatus(c *fiber.Ctx) error {
	sess, err := s.registry.Get(c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	res, ok := sess.Last()
	if !ok {
		return c.JSON(fiber.Map{"session": sess.Info(), "ticked": false})
	}
	return c.JSON(fiber.Map{
		"session":     sess.Info(),
		"ticked":      true,
		"status":      res.Status,
		"status_line": res.Status.String(),
		"descriptor":  res.Descriptor,
	})
}

// CalibrateRequest is the optional body of POST /api/sessions/:id/calibrate
type CalibrateRequest struct {
	Seconds float64 `json:"seconds"`
}

// handleCalibrate opens a calibration window on the session's next tick
func (s *Server) handleCalibrate(c *fiber.Ctx) error {
	sess, err := s.registry.Get(c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	var req CalibrateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	if req.Seconds < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "seconds must be >= 0"})
	}
	sess.Calibrate(time.Duration(req.Seconds * float64(time.Second)))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "calibrating", "session": sess.ID})
}

// handleCloseSession stops a session
func (s *Server) handleCloseSession(c *fiber.Ctx) error {
	if err := s.registry.Close(c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"status": "closed"})
}

// handleRenderWS streams a session's render messages to a viewer
func (s *Server) handleRenderWS(c *websocket.Conn) {
	id := c.Params("id")
	sess, err := s.registry.Get(id)
	if err != nil {
		if msg, mErr := protocol.NewErrorMessage(protocol.CodeNotFound, err.Error()); mErr == nil {
			if data, bErr := msg.Bytes(); bErr == nil {
				c.WriteMessage(websocket.TextMessage, data)
			}
		}
		c.Close()
		return
	}

	// Send the latest frame first so the viewer has something to draw
	if res, ok := sess.Last(); ok {
		if msg, err := protocol.NewRenderMessage(res); err == nil {
			if data, err := msg.Bytes(); err == nil {
				c.WriteMessage(websocket.TextMessage, data)
			}
		}
	}

	hub.NewClient(s.viewers, c, id).Run()
}
