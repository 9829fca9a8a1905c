package sampler

import (
	"fmt"

	"github.com/gemblerz/camera-sampler/pkg/camera"
)

// Capture modes.
const (
	// ModeBuffered reads straight from the device buffer at capture
	// time. Frames queue up between captures, so on a live stream the
	// decoded frame falls behind wall clock time.
	ModeBuffered = "buffered"

	// ModeDrained runs a background drain loop so the device buffer is
	// kept empty and the capture is near-fresh.
	ModeDrained = "drained"

	// ModeNew opens the stream fresh for every capture and closes it
	// after, trading capture latency for a frame that cannot be stale.
	ModeNew = "new"
)

// NewSnapshotter builds the capture strategy for mode. The returned
// release func must be called on shutdown; for the drained mode it
// stops the drain loop before closing the device.
func NewSnapshotter(mode, stream string) (camera.Snapshotter, func() error, error) {
	switch mode {
	case ModeBuffered:
		src, err := camera.Open(stream)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil

	case ModeDrained:
		src, err := camera.Open(stream)
		if err != nil {
			return nil, nil, err
		}
		d := camera.NewDrainer(src)
		d.Start()
		return d, d.Stop, nil

	case ModeNew:
		return reopening{stream: stream}, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown mode (%s)", mode)
	}
}

// reopening opens the stream once per capture.
type reopening struct {
	stream string
}

func (r reopening) Snapshot() (camera.Sample, error) {
	src, err := camera.Open(r.stream)
	if err != nil {
		return camera.Sample{}, err
	}
	defer src.Close()
	return src.Snapshot()
}
