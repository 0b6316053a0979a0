// Package rtc accepts landmark streams over a WebRTC DataChannel. Signalling is a
// single HTTP offer/answer exchange with ICE gathering completed server-side, so
// no trickle channel is needed.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pion/webrtc/v3"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/engine"
	"github.com/teslashibe/go-gaze/pkg/hub"
	"github.com/teslashibe/go-gaze/pkg/ingest"
	"github.com/teslashibe/go-gaze/pkg/metrics"
	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/session"
)

// DefaultGatherTimeout bounds ICE gathering while answering an offer.
const DefaultGatherTimeout = 5 * time.Second

// ErrBadOffer is returned when the offer cannot be applied.
var ErrBadOffer = errors.New("rtc: bad offer")

// Options wires the RTC server to the rest of the service.
type Options struct {
	Registry      *session.Registry
	Manager       *engine.Manager
	Viewers       *hub.Hub // may be nil
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	ICEServers    []string // e.g. "stun:stun.l.google.com:19302"
	GatherTimeout time.Duration
	Loopback      bool // gather loopback candidates, for same-host peers
}

// Server answers offers and runs one session per peer connection.
type Server struct {
	ctx  context.Context
	opts Options
	api  *webrtc.API

	mu    sync.RWMutex
	peers map[string]*Peer
}

// Peer is one connected browser.
type Peer struct {
	ID string

	pc   *webrtc.PeerConnection
	sess *session.Session

	mu sync.Mutex
	dc *webrtc.DataChannel
}

// send writes a text message on the peer's DataChannel once it is open.
func (p *Peer) send(data []byte) error {
	p.mu.Lock()
	dc := p.dc
	p.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return errors.New("rtc: data channel not open")
	}
	return dc.SendText(string(data))
}

// New creates an RTC server. Sessions it opens end when ctx is done.
func New(ctx context.Context, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.L()
	}
	if opts.GatherTimeout <= 0 {
		opts.GatherTimeout = DefaultGatherTimeout
	}
	var se webrtc.SettingEngine
	se.SetIncludeLoopbackCandidate(opts.Loopback)

	return &Server{
		ctx:   ctx,
		opts:  opts,
		api:   webrtc.NewAPI(webrtc.WithSettingEngine(se)),
		peers: make(map[string]*Peer),
	}
}

// Answer applies a remote offer, opens a session for it and returns the local
// answer with all ICE candidates included. id may be empty.
func (s *Server) Answer(ctx context.Context, offer webrtc.SessionDescription, id string) (webrtc.SessionDescription, string, error) {
	if offer.Type != webrtc.SDPTypeOffer {
		return webrtc.SessionDescription{}, "", fmt.Errorf("%w: type %q", ErrBadOffer, offer.Type)
	}

	config := webrtc.Configuration{}
	if len(s.opts.ICEServers) > 0 {
		config.ICEServers = []webrtc.ICEServer{{URLs: s.opts.ICEServers}}
	}
	pc, err := s.api.NewPeerConnection(config)
	if err != nil {
		return webrtc.SessionDescription{}, "", fmt.Errorf("rtc: new peer connection: %w", err)
	}

	peer := &Peer{pc: pc}
	sess, err := s.opts.Registry.Open(s.ctx, session.Options{
		ID:      id,
		Manager: s.opts.Manager,
		Metrics: s.opts.Metrics,
		Logger:  s.opts.Logger,
		OnResult: func(res engine.Result) {
			s.publish(peer, res)
		},
	})
	if err != nil {
		pc.Close()
		return webrtc.SessionDescription{}, "", err
	}
	peer.ID, peer.sess = sess.ID, sess
	logger := s.opts.Logger.With("session", sess.ID, "transport", "rtc")

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		peer.mu.Lock()
		peer.dc = dc
		peer.mu.Unlock()

		reply := func(msg *protocol.Message) error {
			data, err := msg.Bytes()
			if err != nil {
				return err
			}
			return peer.send(data)
		}
		dc.OnOpen(func() {
			logger.Info("data channel open", "label", dc.Label())
			if msg, err := protocol.NewSessionMessage(sess.ID); err == nil {
				reply(msg)
			}
		})
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if err := ingest.Dispatch(sess, msg.Data, reply, s.opts.Metrics, "rtc"); err != nil {
				logger.Debug("message rejected", "error", err)
			}
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Debug("connection state", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			s.drop(peer)
		}
	})

	s.mu.Lock()
	s.peers[sess.ID] = peer
	s.mu.Unlock()

	answer, err := s.negotiate(ctx, pc, offer)
	if err != nil {
		s.drop(peer)
		return webrtc.SessionDescription{}, "", err
	}
	logger.Info("peer connected")
	return answer, sess.ID, nil
}

func (s *Server) negotiate(ctx context.Context, pc *webrtc.PeerConnection, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: %v", ErrBadOffer, err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("rtc: create answer: %w", err)
	}

	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("rtc: set local description: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.GatherTimeout)
	defer cancel()
	select {
	case <-gathered:
	case <-ctx.Done():
		// Whatever was gathered so far is still a usable answer.
	}
	return *pc.LocalDescription(), nil
}

// publish sends one tick's render message over the DataChannel and to viewers.
func (s *Server) publish(p *Peer, res engine.Result) {
	msg, err := protocol.NewRenderMessage(res)
	if err != nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	if s.opts.Viewers != nil {
		s.opts.Viewers.Publish(p.ID, data)
	}
	p.send(data)
}

// drop closes a peer and its session. Safe to call more than once.
func (s *Server) drop(p *Peer) {
	s.mu.Lock()
	_, ok := s.peers[p.ID]
	delete(s.peers, p.ID)
	s.mu.Unlock()
	if !ok {
		return
	}
	p.sess.Close()
	go p.pc.Close() // Close blocks on callbacks that may be running this one
}

// Count returns the number of connected peers.
func (s *Server) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Close closes every peer.
func (s *Server) Close() {
	s.mu.RLock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.RUnlock()
	for _, p := range peers {
		s.drop(p)
	}
}

// offerRequest is the body of POST /rtc/offer.
type offerRequest struct {
	Type      string `json:"type"`
	SDP       string `json:"sdp"`
	SessionID string `json:"session_id,omitempty"`
}

// RegisterRoutes registers the signalling endpoint on an API router.
func (s *Server) RegisterRoutes(api fiber.Router) {
	api.Post("/rtc/offer", func(c *fiber.Ctx) error {
		var req offerRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		offer := webrtc.SessionDescription{Type: webrtc.NewSDPType(req.Type), SDP: req.SDP}

		answer, id, err := s.Answer(c.UserContext(), offer, req.SessionID)
		switch {
		case errors.Is(err, ErrBadOffer):
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, session.ErrExists):
			return c.Status(409).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{
			"type":       answer.Type.String(),
			"sdp":        answer.SDP,
			"session_id": id,
		})
	})
}
