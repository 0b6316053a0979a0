// Package protocol defines the WebSocket and DataChannel message types exchanged
// between a landmark provider (usually a browser running the face mesh) and gazed.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-gaze/pkg/render"
)

var (
	// ErrUnknownType is returned when a message carries a type this package does not define.
	ErrUnknownType = errors.New("protocol: unknown message type")

	// ErrBadFrameSize is returned when landmark data lacks a positive frame size.
	ErrBadFrameSize = errors.New("protocol: frame width and height must be positive")
)

// MessageType identifies the type of a message
type MessageType string

const (
	// Provider → server
	TypeLandmarks MessageType = "landmarks" // One detector result
	TypeCalibrate MessageType = "calibrate" // Start a calibration window

	// Server → provider / viewers
	TypeRender  MessageType = "render"  // Per-tick render descriptor and status
	TypeSession MessageType = "session" // Session assigned on connect
	TypeError   MessageType = "error"   // Request could not be handled

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

var knownTypes = map[MessageType]bool{
	TypeLandmarks: true,
	TypeCalibrate: true,
	TypeRender:    true,
	TypeSession:   true,
	TypeError:     true,
	TypePing:      true,
	TypePong:      true,
}

// Message is the base wrapper for all messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes. Messages of an unknown type are
// rejected with an error wrapping ErrUnknownType.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if !knownTypes[msg.Type] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	return &msg, nil
}

// =============================================================================
// Provider → Server Message Types
// =============================================================================

// LandmarkData is one detector result. Each point is [index, x, y] with x and y
// normalized to [0,1].
type LandmarkData struct {
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	FaceDetected bool         `json:"face_detected"`
	Points       [][3]float64 `json:"points,omitempty"`
	Seq          uint64       `json:"seq,omitempty"`
}

// CalibrateData starts a calibration window. Zero seconds keeps the configured window.
type CalibrateData struct {
	Seconds float64 `json:"seconds,omitempty"`
}

// =============================================================================
// Server → Provider Message Types
// =============================================================================

// RenderData carries one tick of engine output.
type RenderData struct {
	Descriptor render.Descriptor `json:"descriptor"`
	Status     render.Status     `json:"status"`
	StatusLine string            `json:"status_line"`
	Blink      bool              `json:"blink,omitempty"`
}

// SessionData tells a provider which session it feeds.
type SessionData struct {
	ID string `json:"id"`
}

// ErrorData describes a rejected message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	CodeBadMessage  = "bad_message"
	CodeUnknownType = "unknown_type"
	CodeBadConfig   = "bad_config"
	CodeNotFound    = "not_found"
)

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
