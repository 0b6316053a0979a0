// gaze-replay: streams landmark frames to gazed and prints the status line of
// each render reply. Frames come from a JSON-lines file of landmark messages
// ("data" payloads) or from a built-in synthetic face.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/protocol"
)

var (
	url       = flag.String("url", "ws://localhost:8080/ws/session", "gazed session endpoint")
	file      = flag.String("file", "", "JSON-lines file of landmark payloads (default: synthetic face)")
	fps       = flag.Int("fps", 30, "frames per second")
	duration  = flag.Duration("duration", 10*time.Second, "how long to stream synthetic frames")
	calibrate = flag.Bool("calibrate", true, "request calibration after the first frame")
	every     = flag.Int("every", 15, "print every Nth status line")
	width     = flag.Int("width", 640, "frame width; also fills file lines without one")
	height    = flag.Int("height", 480, "frame height; also fills file lines without one")
)

func main() {
	flag.Parse()
	log.Init(os.Getenv("GAZE_LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("replay failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, *url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *url, err)
	}
	defer ws.Close()

	src, err := openSource()
	if err != nil {
		return err
	}

	readErr := make(chan error, 1)
	go func() { readErr <- printReplies(ws, os.Stdout, *every) }()

	ticker := time.NewTicker(time.Second / time.Duration(max(*fps, 1)))
	defer ticker.Stop()

	sent := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.C:
		}

		data, ok, err := src()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		msg, err := protocol.NewMessage(protocol.TypeLandmarks, data)
		if err != nil {
			return err
		}
		if err := send(ws, msg); err != nil {
			return err
		}
		sent++

		if sent == 1 && *calibrate {
			cal, _ := protocol.NewCalibrateMessage(0)
			if err := send(ws, cal); err != nil {
				return err
			}
		}
	}

	log.Info("replay finished", "frames", sent)
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-readErr:
	case <-time.After(time.Second):
	}
	return nil
}

func send(ws *websocket.Conn, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}

// source yields landmark payloads until ok is false.
type source func() (data protocol.LandmarkData, ok bool, err error)

func openSource() (source, error) {
	if *file == "" {
		return synthSource(newSynth(*width, *height), int(duration.Seconds()*float64(*fps))), nil
	}
	f, err := os.Open(*file)
	if err != nil {
		return nil, err
	}
	return fileSource(f, *width, *height), nil
}

func synthSource(s *synth, frames int) source {
	var seq uint64
	return func() (protocol.LandmarkData, bool, error) {
		if int(seq) >= frames {
			return protocol.LandmarkData{}, false, nil
		}
		seq++
		return protocol.LandmarksFromFrame(s.Next(), true, seq), true, nil
	}
}

// fileSource reads one LandmarkData per line. Lines recorded without a frame size
// get width x height.
func fileSource(r io.Reader, width, height int) source {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	return func() (protocol.LandmarkData, bool, error) {
		for sc.Scan() {
			line++
			if len(sc.Bytes()) == 0 {
				continue
			}
			var d protocol.LandmarkData
			if err := json.Unmarshal(sc.Bytes(), &d); err != nil {
				return d, false, fmt.Errorf("line %d: %w", line, err)
			}
			if d.Width <= 0 || d.Height <= 0 {
				d.Width, d.Height = width, height
			}
			return d, true, nil
		}
		return protocol.LandmarkData{}, false, sc.Err()
	}
}

// printReplies prints every nth render status line, plus blinks and errors.
func printReplies(ws *websocket.Conn, w io.Writer, n int) error {
	if n < 1 {
		n = 1
	}
	renders := 0
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}
		switch msg.Type {
		case protocol.TypeSession:
			sd, _ := msg.GetSessionData()
			fmt.Fprintf(w, "session %s\n", sd.ID)
		case protocol.TypeRender:
			rd, err := msg.GetRenderData()
			if err != nil {
				continue
			}
			renders++
			if rd.Blink || renders%n == 0 {
				fmt.Fprintln(w, rd.StatusLine)
			}
		case protocol.TypeError:
			ed, _ := msg.GetErrorData()
			fmt.Fprintf(w, "error %s: %s\n", ed.Code, ed.Message)
		}
	}
}
