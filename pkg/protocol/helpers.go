package protocol

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-gaze/pkg/engine"
	"github.com/teslashibe/go-gaze/pkg/landmark"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewLandmarksMessage creates a landmarks message from a frame.
func NewLandmarksMessage(f landmark.Frame, faceDetected bool, seq uint64) (*Message, error) {
	return NewMessage(TypeLandmarks, LandmarksFromFrame(f, faceDetected, seq))
}

// NewCalibrateMessage creates a calibration request.
func NewCalibrateMessage(seconds float64) (*Message, error) {
	return NewMessage(TypeCalibrate, CalibrateData{Seconds: seconds})
}

// NewRenderMessage creates a render message from one tick result.
func NewRenderMessage(res engine.Result) (*Message, error) {
	return NewMessage(TypeRender, RenderData{
		Descriptor: res.Descriptor,
		Status:     res.Status,
		StatusLine: res.Status.String(),
		Blink:      res.Blink,
	})
}

// NewSessionMessage announces the session ID to a provider.
func NewSessionMessage(id string) (*Message, error) {
	return NewMessage(TypeSession, SessionData{ID: id})
}

// NewErrorMessage creates an error message
func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Code: code, Message: message})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string, ts int64) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: ts})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetLandmarkData extracts landmark data from a message
func (m *Message) GetLandmarkData() (*LandmarkData, error) {
	var data LandmarkData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCalibrateData extracts a calibration request from a message
func (m *Message) GetCalibrateData() (*CalibrateData, error) {
	var data CalibrateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetRenderData extracts render data from a message
func (m *Message) GetRenderData() (*RenderData, error) {
	var data RenderData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSessionData extracts session data from a message
func (m *Message) GetSessionData() (*SessionData, error) {
	var data SessionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// =============================================================================
// Landmark conversion
// =============================================================================

// Frame converts the wire points to a landmark frame. Entries with a non-integer or
// out-of-range index, or non-finite coordinates, are skipped and counted in dropped;
// the engine treats the landmarks they would have provided as missing. A frame
// without a positive width and height is rejected with ErrBadFrameSize.
func (d *LandmarkData) Frame() (f landmark.Frame, dropped int, err error) {
	if d.Width <= 0 || d.Height <= 0 {
		return landmark.Frame{}, 0, fmt.Errorf("%w: %dx%d", ErrBadFrameSize, d.Width, d.Height)
	}
	f = landmark.NewFrame(d.Width, d.Height)
	for _, p := range d.Points {
		idx := p[0]
		if idx != math.Trunc(idx) || idx < 0 || idx > landmark.MaxIndex {
			dropped++
			continue
		}
		pt := landmark.Point{X: p[1], Y: p[2]}
		if !pt.Finite() {
			dropped++
			continue
		}
		f.Points[int(idx)] = pt
	}
	return f, dropped, nil
}

// LandmarksFromFrame builds wire data from a frame. Points are emitted in index order.
func LandmarksFromFrame(f landmark.Frame, faceDetected bool, seq uint64) LandmarkData {
	d := LandmarkData{
		Width:        f.Width,
		Height:       f.Height,
		FaceDetected: faceDetected,
		Seq:          seq,
	}
	for i := 0; i <= landmark.MaxIndex; i++ {
		if p, ok := f.Points[i]; ok {
			d.Points = append(d.Points, [3]float64{float64(i), p.X, p.Y})
		}
	}
	return d
}
