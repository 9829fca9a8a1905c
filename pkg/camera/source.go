// Package camera captures frames from a video stream.
//
// The usual OpenCV read() pulls the oldest frame out of the device
// buffer, which on a live stream can lag wall clock time by seconds.
// The Drainer in this package keeps that buffer empty so the frame
// decoded at capture time is near-fresh.
package camera

import (
	"fmt"
	"strconv"
	"time"

	"gocv.io/x/gocv"
)

// Source is the minimal surface the drainer needs from a video device.
type Source interface {
	// Grab pulls the next frame into the device buffer without decoding it.
	Grab()

	// Retrieve decodes the most recently grabbed frame into JPEG bytes.
	// ok is false when there is nothing to decode or decoding fails.
	Retrieve() (data []byte, ok bool)

	// FPS reports the frame rate advertised by the device, or 0 if unknown.
	FPS() float64

	// Close releases the device.
	Close() error
}

// Stream is a Source backed by a gocv VideoCapture.
type Stream struct {
	name string
	cap  *gocv.VideoCapture
}

// Open opens the named video stream. The identifier "camera" (the
// default) and plain integers select a local device index; anything
// else is passed to OpenCV as a URL or file path.
func Open(stream string) (*Stream, error) {
	cap, err := gocv.OpenVideoCapture(deviceOf(stream))
	if err != nil {
		return nil, fmt.Errorf("open stream %q: %w", stream, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("open stream %q: device not opened", stream)
	}
	return &Stream{name: stream, cap: cap}, nil
}

func deviceOf(stream string) interface{} {
	if stream == "" || stream == "camera" {
		return 0
	}
	if n, err := strconv.Atoi(stream); err == nil {
		return n
	}
	return stream
}

// Name returns the stream identifier this source was opened with.
func (s *Stream) Name() string { return s.name }

// Grab pulls one frame into the device buffer.
func (s *Stream) Grab() { s.cap.Grab(1) }

// Retrieve decodes the most recently grabbed frame into JPEG bytes.
func (s *Stream) Retrieve() ([]byte, bool) {
	mat := gocv.NewMat()
	defer mat.Close()
	if !s.cap.Retrieve(&mat) || mat.Empty() {
		return nil, false
	}
	return encodeJPEG(mat)
}

// FPS reports the frame rate advertised by the device.
func (s *Stream) FPS() float64 { return s.cap.Get(gocv.VideoCaptureFPS) }

// Close releases the device.
func (s *Stream) Close() error { return s.cap.Close() }

// Snapshot reads and decodes a frame straight from the device buffer.
// This is the whole capture path in buffered mode: frames queued since
// the previous read come out first, so on a live stream the returned
// frame can be well behind the timestamp.
func (s *Stream) Snapshot() (Sample, error) {
	mat := gocv.NewMat()
	defer mat.Close()
	if !s.cap.Read(&mat) || mat.Empty() {
		return Sample{}, ErrRetrieve
	}
	stamp := time.Now().UTC()
	data, ok := encodeJPEG(mat)
	if !ok {
		return Sample{}, ErrRetrieve
	}
	return Sample{Data: data, Timestamp: stamp}, nil
}

func encodeJPEG(m gocv.Mat) ([]byte, bool) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, m)
	if err != nil {
		return nil, false
	}
	defer buf.Close()
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, true
}
