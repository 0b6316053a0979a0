package ingest

import (
	"errors"
	"time"

	"github.com/teslashibe/go-gaze/pkg/landmark"
	"github.com/teslashibe/go-gaze/pkg/metrics"
	"github.com/teslashibe/go-gaze/pkg/protocol"
	"github.com/teslashibe/go-gaze/pkg/session"
)

// Sink receives what a provider sends. *session.Session implements it.
type Sink interface {
	Offer(d landmark.Detection) bool
	Submit(f landmark.Frame, faceDetected bool) bool
	Calibrate(window time.Duration)
}

var _ Sink = (*session.Session)(nil)

// Reply sends a message back to the provider.
type Reply func(*protocol.Message) error

// Dispatch decodes one inbound message and applies it to sink. It is shared by
// every transport; transport names the source for metrics.
func Dispatch(sink Sink, data []byte, reply Reply, m *metrics.Metrics, transport string) error {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		m.ObserveMessage(transport, "invalid")
		code := protocol.CodeBadMessage
		if errors.Is(err, protocol.ErrUnknownType) {
			code = protocol.CodeUnknownType
		}
		return replyError(reply, code, err)
	}
	m.ObserveMessage(transport, string(msg.Type))

	switch msg.Type {
	case protocol.TypeLandmarks:
		lm, err := msg.GetLandmarkData()
		if err != nil {
			return replyError(reply, protocol.CodeBadMessage, err)
		}
		frame, dropped, err := lm.Frame()
		if err != nil {
			return replyError(reply, protocol.CodeBadMessage, err)
		}
		m.AddDroppedPoints(dropped)
		if lm.Seq == 0 {
			sink.Submit(frame, lm.FaceDetected)
			return nil
		}
		sink.Offer(landmark.Detection{
			Frame:        frame,
			FaceDetected: lm.FaceDetected,
			Seq:          lm.Seq,
			At:           time.Now(),
		})

	case protocol.TypeCalibrate:
		cal, err := msg.GetCalibrateData()
		if err != nil {
			return replyError(reply, protocol.CodeBadMessage, err)
		}
		sink.Calibrate(time.Duration(cal.Seconds * float64(time.Second)))

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return replyError(reply, protocol.CodeBadMessage, err)
		}
		pingTS := ping.Timestamp
		if pingTS == 0 {
			pingTS = msg.Timestamp
		}
		pong, err := protocol.NewPongMessage(ping.ID, pingTS, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		return reply(pong)
	}
	// Server-to-client types from a client are ignored.
	return nil
}

func replyError(reply Reply, code string, cause error) error {
	msg, err := protocol.NewErrorMessage(code, cause.Error())
	if err != nil {
		return err
	}
	if err := reply(msg); err != nil {
		return err
	}
	return cause
}
