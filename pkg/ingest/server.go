// Package ingest accepts landmark streams over WebSocket. Each connection opens a
// session; the session's render output goes back to the provider and out to the
// session's viewers.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/engine"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/metrics"
	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/session"
)

const (
	// writeWait bounds a single write to a provider.
	writeWait = 2 * time.Second

	// stopWait bounds how long a disconnecting handler waits for its session loop.
	stopWait = 5 * time.Second
)

// ErrConnClosed is returned by Send once the provider's handler has returned.
var ErrConnClosed = errors.New("ingest: connection closed")

// Connection is one connected landmark provider.
type Connection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time

	lastSeen atomic.Int64 // unix nanoseconds
	mu       sync.Mutex
	closed   bool
}

// Send writes a message to the provider. Safe for concurrent use.
func (c *Connection) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

// SendRaw writes pre-encoded bytes to the provider. Safe for concurrent use.
// After release it returns ErrConnClosed without touching the socket.
func (c *Connection) SendRaw(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.Conn == nil {
		return ErrConnClosed
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// release waits out any write in flight and detaches the socket. fiber pools the
// underlying connection once the handler returns, so nothing may write after this.
func (c *Connection) release() {
	c.mu.Lock()
	c.closed = true
	c.Conn = nil
	c.mu.Unlock()
}

// LastSeen returns when the provider last sent anything.
func (c *Connection) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// Options wires a Server to the rest of the service.
type Options struct {
	Registry *session.Registry
	Manager  *engine.Manager
	Viewers  *hub.Hub // may be nil
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Server manages WebSocket connections from landmark providers
type Server struct {
	ctx  context.Context
	opts Options

	mu    sync.RWMutex
	conns map[string]*Connection

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
}

// New creates an ingest server. Sessions it opens end when ctx is done.
func New(ctx context.Context, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.L()
	}
	return &Server{
		ctx:   ctx,
		opts:  opts,
		conns: make(map[string]*Connection),
	}
}

// RegisterRoutes registers the upgrade guard and the provider endpoints on a Fiber app.
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/session", websocket.New(s.handleProvider))
	app.Get("/ws/session/:id", websocket.New(s.handleProvider))
}

// handleProvider runs one provider connection until it disconnects.
func (s *Server) handleProvider(c *websocket.Conn) {
	conn := &Connection{Conn: c, Connected: time.Now()}
	conn.lastSeen.Store(time.Now().UnixNano())
	defer conn.release()

	sess, err := s.opts.Registry.Open(s.ctx, session.Options{
		ID:      c.Params("id"),
		Manager: s.opts.Manager,
		Metrics: s.opts.Metrics,
		Logger:  s.opts.Logger,
		OnResult: func(res engine.Result) {
			s.publish(conn, res)
		},
	})
	if err != nil {
		code := protocol.CodeBadConfig
		if errors.Is(err, session.ErrExists) {
			code = protocol.CodeBadMessage
		}
		if msg, mErr := protocol.NewErrorMessage(code, err.Error()); mErr == nil {
			conn.Send(msg)
		}
		s.opts.Logger.Warn("session open failed", "error", err)
		return
	}
	conn.ID = sess.ID
	logger := s.opts.Logger.With("session", sess.ID)

	s.mu.Lock()
	s.conns[sess.ID] = conn
	count := len(s.conns)
	s.mu.Unlock()
	logger.Info("provider connected", "providers", count)

	defer func() {
		sess.Close()
		ctx, cancel := context.WithTimeout(context.Background(), stopWait)
		if err := sess.Wait(ctx); err != nil {
			logger.Warn("session loop did not stop in time", "error", err)
		}
		cancel()
		s.mu.Lock()
		delete(s.conns, sess.ID)
		count := len(s.conns)
		s.mu.Unlock()
		logger.Info("provider disconnected", "providers", count)
	}()

	if msg, err := protocol.NewSessionMessage(sess.ID); err == nil {
		s.send(conn, msg)
	}

	reply := func(msg *protocol.Message) error { return s.send(conn, msg) }
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			logger.Debug("provider read ended", "error", err)
			return
		}
		conn.lastSeen.Store(time.Now().UnixNano())
		s.messagesReceived.Add(1)

		if err := Dispatch(sess, data, reply, s.opts.Metrics, "ws"); err != nil {
			logger.Debug("message rejected", "error", err)
		}
	}
}

// publish sends one tick's render message to the provider and its viewers.
func (s *Server) publish(conn *Connection, res engine.Result) {
	msg, err := protocol.NewRenderMessage(res)
	if err != nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	if s.opts.Viewers != nil {
		s.opts.Viewers.Publish(conn.ID, data)
	}
	if err := conn.SendRaw(data); err == nil {
		s.messagesSent.Add(1)
	}
}

func (s *Server) send(conn *Connection, msg *protocol.Message) error {
	if err := conn.Send(msg); err != nil {
		return err
	}
	s.messagesSent.Add(1)
	return nil
}

// Count returns the number of connected providers
func (s *Server) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Get returns a provider connection by session ID, or nil.
func (s *Server) Get(id string) *Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conns[id]
}

// Stats contains ingest statistics
type Stats struct {
	Providers        int    `json:"providers"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
}

// GetStats returns ingest statistics
func (s *Server) GetStats() Stats {
	return Stats{
		Providers:        s.Count(),
		MessagesReceived: s.messagesReceived.Load(),
		MessagesSent:     s.messagesSent.Load(),
	}
}
