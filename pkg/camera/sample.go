package camera

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	// ErrNoFrame is returned by Snapshot before the first grab has completed.
	ErrNoFrame = errors.New("camera has not grabbed a frame yet")

	// ErrRetrieve is returned when the device fails to decode the grabbed frame.
	ErrRetrieve = errors.New("failed to retrieve the taken snapshot")
)

// Sample is a decoded frame ready to save or publish.
type Sample struct {
	Data      []byte    // JPEG-encoded image
	Timestamp time.Time // when the frame was grabbed, UTC
}

// Save writes the JPEG data to path.
func (s Sample) Save(path string) error {
	if err := os.WriteFile(path, s.Data, 0644); err != nil {
		return fmt.Errorf("save sample: %w", err)
	}
	return nil
}

// Snapshotter produces the current frame of a stream. Stream, Drainer,
// and the per-capture reopening strategy all implement it.
type Snapshotter interface {
	Snapshot() (Sample, error)
}
