// Package sampler runs the scheduled capture loop: wait for the next
// cron instant, snapshot the stream, save the frame, publish it.
package sampler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gemblerz/camera-sampler/internal/log"
	"github.com/gemblerz/camera-sampler/pkg/camera"
	"github.com/gemblerz/camera-sampler/pkg/upload"
)

// SampleFilename is the name the current sample is saved under in the
// work directory. Each capture overwrites the previous one.
const SampleFilename = "sample.jpg"

// Schedule yields capture instants. Implemented by schedule.Cron.
type Schedule interface {
	Next(now time.Time) time.Time
	Wait(ctx context.Context, now time.Time) error
}

// Sampler captures one frame per scheduled instant and publishes it.
type Sampler struct {
	snap    camera.Snapshotter
	sched   Schedule
	pub     upload.Publisher
	stream  string
	workDir string

	// OnSample, when set, is called with each sample after a successful
	// publish. The status server uses it to serve live previews.
	OnSample func(camera.Sample)
}

// New creates a sampler that captures from snap on sched and publishes
// through pub. Samples are written to workDir before upload.
func New(snap camera.Snapshotter, sched Schedule, pub upload.Publisher, stream, workDir string) *Sampler {
	return &Sampler{
		snap:    snap,
		sched:   sched,
		pub:     pub,
		stream:  stream,
		workDir: workDir,
	}
}

// Run executes the capture loop until ctx is canceled or a capture,
// save, or publish fails. Any such failure is fatal: the error is
// returned with no retry.
func (s *Sampler) Run(ctx context.Context) error {
	for {
		now := time.Now().UTC()
		next := s.sched.Next(now)
		log.Info("sleeping until next capture", "at", next, "in", next.Sub(now).Round(time.Millisecond))

		if err := s.sched.Wait(ctx, now); err != nil {
			return err
		}

		log.Info("capturing", "stream", s.stream)
		sample, err := s.snap.Snapshot()
		if err != nil {
			return fmt.Errorf("capture: %w", err)
		}

		path := filepath.Join(s.workDir, SampleFilename)
		if err := sample.Save(path); err != nil {
			return err
		}

		if err := s.pub.UploadFile(ctx, path, s.stream, sample.Timestamp); err != nil {
			return fmt.Errorf("publish: %w", err)
		}

		if s.OnSample != nil {
			s.OnSample(sample)
		}
	}
}
