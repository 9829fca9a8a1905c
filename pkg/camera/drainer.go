package camera

import (
	"sync"
	"time"
)

// defaultDrainInterval is used when the source does not report a frame rate.
const defaultDrainInterval = 10 * time.Millisecond

// Drainer keeps a video source's internal buffer empty by continuously
// grabbing frames in the background, deferring the decode cost to
// Snapshot time. There is no queue: each grab overwrites the previous
// one, and Snapshot always decodes the latest.
//
// One goroutine writes the shared slot (grab + timestamp) and Snapshot
// reads it. A single mutex covers both sides, because grab and retrieve
// operate on the same underlying device buffer and must not interleave.
type Drainer struct {
	src Source

	mu      sync.Mutex
	stamp   time.Time
	grabbed bool

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewDrainer creates a drainer for src. The drain interval is derived
// from the source's advertised frame rate.
func NewDrainer(src Source) *Drainer {
	return &Drainer{
		src:      src,
		interval: drainInterval(src.FPS()),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// drainInterval picks the pause between grabs: slightly faster than the
// advertised frame rate so the device buffer never backs up. Sources
// that report no rate get a fixed 10ms.
func drainInterval(fps float64) time.Duration {
	if fps > 0 {
		return time.Duration(float64(time.Second) / (fps + 1))
	}
	return defaultDrainInterval
}

// Start launches the drain loop. Call Stop to terminate it and release
// the source.
func (d *Drainer) Start() {
	go d.run()
}

func (d *Drainer) run() {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		d.drain()
		select {
		case <-d.stop:
			return
		case <-ticker.C:
		}
	}
}

// drain executes one loop iteration: grab a frame and stamp it.
func (d *Drainer) drain() {
	d.mu.Lock()
	d.src.Grab()
	d.stamp = time.Now().UTC()
	d.grabbed = true
	d.mu.Unlock()
}

// Snapshot decodes the most recently grabbed frame and returns it with
// its grab timestamp. Before the first grab completes it returns
// ErrNoFrame; a decode failure returns ErrRetrieve and no data.
func (d *Drainer) Snapshot() (Sample, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.grabbed {
		return Sample{}, ErrNoFrame
	}
	data, ok := d.src.Retrieve()
	if !ok {
		return Sample{}, ErrRetrieve
	}
	return Sample{Data: data, Timestamp: d.stamp}, nil
}

// Stop signals the drain loop, waits for it to exit, then releases the
// source. The loop observes the signal while waiting on its ticker, so
// stop latency is bounded by one drain interval.
func (d *Drainer) Stop() error {
	close(d.stop)
	<-d.done
	return d.src.Close()
}
