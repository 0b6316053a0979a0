package landmark

import (
	"context"
	"time"
)

// Detection is one completed detector run.
type Detection struct {
	Frame        Frame
	FaceDetected bool
	Seq          uint64    // detector-assigned sequence number, increasing
	At           time.Time // completion time
}

// Provider is the contract of an external landmark detector.
type Provider interface {
	// Next blocks until a newer detection is available or ctx is done.
	Next(ctx context.Context) (Detection, error)

	// Close releases resources.
	Close() error
}
