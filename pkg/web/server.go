// Package web serves the gazed HTTP API, the landmark and viewer WebSockets, WebRTC
// signalling and Prometheus metrics on one Fiber app.
package web

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/engine"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/ingest"
	"github.com/teslashibe/go-gaze/pkg/metrics"
	"github.com/teslashibe/go-gaze/pkg/rtc"
	"github.com/teslashibe/go-gaze/pkg/session"
)

// Options configures the server.
type Options struct {
	Addr       string // e.g. ":8080"
	Manager    *engine.Manager
	Metrics    *metrics.Metrics // nil creates one
	Logger     *slog.Logger
	AccessLog  io.Writer // nil writes access logs to stdout; io.Discard disables them
	StaticDir  string    // optional browser client
	ICEServers []string
	Loopback   bool // gather loopback ICE candidates
}

// Server is the gazed HTTP server
type Server struct {
	app  *fiber.App
	addr string

	manager  *engine.Manager
	registry *session.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger

	viewers *hub.Hub
	ingest  *ingest.Server
	rtc     *rtc.Server

	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time
}

// NewServer builds the app and its routes. Nothing listens until Start.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.L()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.AccessLog == nil {
		opts.AccessLog = os.Stdout
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:     opts.Addr,
		manager:  opts.Manager,
		registry: session.NewRegistry(opts.Metrics),
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		viewers:  hub.New("render", opts.Logger),
		ctx:      ctx,
		cancel:   cancel,
		started:  time.Now(),
	}
	s.ingest = ingest.New(ctx, ingest.Options{
		Registry: s.registry,
		Manager:  s.manager,
		Viewers:  s.viewers,
		Metrics:  s.metrics,
		Logger:   s.logger,
	})
	s.rtc = rtc.New(ctx, rtc.Options{
		Registry:   s.registry,
		Manager:    s.manager,
		Viewers:    s.viewers,
		Metrics:    s.metrics,
		Logger:     s.logger,
		ICEServers: opts.ICEServers,
		Loopback:   opts.Loopback,
	})

	if s.manager.OnConfigChange == nil {
		s.manager.OnConfigChange = func(cfg engine.Config) {
			s.metrics.ConfigVersions.Inc()
			s.logger.Info("config updated", "version", s.manager.Version())
		}
	}

	app := fiber.New(fiber.Config{
		AppName:               "gazed",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: opts.AccessLog}))
	app.Use(cors.New())

	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handlePutConfig)
	api.Patch("/config", s.handlePatchConfig)
	api.Get("/config/presets", s.handlePresets)
	api.Get("/sessions", s.handleListSessions)
	api.Get("/sessions/stats", s.handleStats)
	api.Get("/sessions/:id/status", s.handleSessionStatus)
	api.Post("/sessions/:id/calibrate", s.handleCalibrate)
	api.Delete("/sessions/:id", s.handleCloseSession)
	s.rtc.RegisterRoutes(api)

	app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	// WebSocket routes; ingest installs the upgrade guard for /ws
	s.ingest.RegisterRoutes(app)
	app.Get("/ws/render/:id", websocket.New(s.handleRenderWS))

	s.app = app
	return s
}

// Start runs the viewer hub and listens on the configured address. Blocks.
func (s *Server) Start() error {
	s.logger.Info("gazed listening", "addr", s.addr)
	go s.viewers.Run(s.ctx)
	return s.app.Listen(s.addr)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("gazed listening", "addr", ln.Addr().String())
	go s.viewers.Run(s.ctx)
	return s.app.Listener(ln)
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Registry returns the session registry.
func (s *Server) Registry() *session.Registry { return s.registry }

// Shutdown closes peers and sessions, then stops the listener.
func (s *Server) Shutdown() error {
	s.rtc.Close()
	s.cancel()
	s.registry.Shutdown()
	return s.app.Shutdown()
}
