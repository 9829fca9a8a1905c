package camera

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeSource records grabs and serves deterministic frames for testing
type fakeSource struct {
	mu         sync.Mutex
	grabs      int
	retrieveOK bool
	fps        float64
	closed     bool

	// busy detects grab/retrieve overlap under concurrent stress
	busy int32
	torn int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{retrieveOK: true}
}

func (f *fakeSource) enter() {
	if !atomic.CompareAndSwapInt32(&f.busy, 0, 1) {
		atomic.StoreInt32(&f.torn, 1)
	}
}

func (f *fakeSource) leave() {
	atomic.StoreInt32(&f.busy, 0)
}

func (f *fakeSource) Grab() {
	f.enter()
	defer f.leave()
	f.mu.Lock()
	f.grabs++
	f.mu.Unlock()
}

func (f *fakeSource) Retrieve() ([]byte, bool) {
	f.enter()
	defer f.leave()
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.retrieveOK {
		return nil, false
	}
	return []byte(fmt.Sprintf("frame-%d", f.grabs)), true
}

func (f *fakeSource) FPS() float64 { return f.fps }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) grabCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grabs
}

func TestDrainInterval(t *testing.T) {
	// 1e9/31 has no exact integer value, so the expected duration must
	// be computed at runtime rather than as a constant expression.
	reported := 30.0
	cases := []struct {
		fps  float64
		want time.Duration
	}{
		{fps: reported, want: time.Duration(float64(time.Second) / (reported + 1))},
		{fps: 0, want: 10 * time.Millisecond},
		{fps: -1, want: 10 * time.Millisecond},
	}
	for _, c := range cases {
		got := drainInterval(c.fps)
		if got != c.want {
			t.Errorf("drainInterval(%v): got %v, want %v", c.fps, got, c.want)
		}
	}
}

func TestDrainInterval_30FPSApprox(t *testing.T) {
	// fps=30 should land close to 1/31s (~32ms)
	got := drainInterval(30)
	if got < 32*time.Millisecond || got > 33*time.Millisecond {
		t.Errorf("drainInterval(30): got %v, want ~32.2ms", got)
	}
}

func TestDrainer_SnapshotBeforeFirstGrab(t *testing.T) {
	d := NewDrainer(newFakeSource())

	_, err := d.Snapshot()
	if !errors.Is(err, ErrNoFrame) {
		t.Errorf("Snapshot before grab: got %v, want ErrNoFrame", err)
	}
}

func TestDrainer_SnapshotReturnsLatestGrab(t *testing.T) {
	src := newFakeSource()
	d := NewDrainer(src)

	d.drain()
	first, err := d.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if string(first.Data) != "frame-1" {
		t.Errorf("first snapshot: got %q, want frame-1", first.Data)
	}

	d.drain()
	second, err := d.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if string(second.Data) != "frame-2" {
		t.Errorf("second snapshot: got %q, want frame-2 (latest grab only)", second.Data)
	}
	if second.Timestamp.Before(first.Timestamp) {
		t.Errorf("timestamp went backwards: %v then %v", first.Timestamp, second.Timestamp)
	}
}

func TestDrainer_SnapshotTwiceWithoutGrab(t *testing.T) {
	d := NewDrainer(newFakeSource())

	d.drain()
	a, err := d.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	b, err := d.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		t.Errorf("timestamps differ with no intervening grab: %v vs %v", a.Timestamp, b.Timestamp)
	}
}

func TestDrainer_RetrieveFailure(t *testing.T) {
	src := newFakeSource()
	src.retrieveOK = false
	d := NewDrainer(src)

	d.drain()
	sample, err := d.Snapshot()
	if !errors.Is(err, ErrRetrieve) {
		t.Errorf("Snapshot with failing retrieve: got %v, want ErrRetrieve", err)
	}
	if sample.Data != nil {
		t.Errorf("Snapshot returned partial data on failure: %q", sample.Data)
	}
}

func TestDrainer_StartStop(t *testing.T) {
	src := newFakeSource()
	d := NewDrainer(src)

	d.Start()
	time.Sleep(55 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- d.Stop()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop: %v", err)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Stop did not return within one drain interval bound")
	}

	if !src.closed {
		t.Error("source not closed after Stop")
	}

	// At 10ms per iteration over 55ms, expect a handful of grabs
	if n := src.grabCount(); n < 3 {
		t.Errorf("expected at least 3 grabs, got %d", n)
	}
}

func TestDrainer_StopClosesSourceAfterLoopExit(t *testing.T) {
	src := newFakeSource()
	d := NewDrainer(src)

	d.Start()
	time.Sleep(20 * time.Millisecond)
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// The loop goroutine has joined; no grab may land after Close.
	n := src.grabCount()
	time.Sleep(30 * time.Millisecond)
	if src.grabCount() != n {
		t.Error("drain loop still grabbing after Stop returned")
	}
}

func TestDrainer_ConcurrentSnapshotStress(t *testing.T) {
	src := newFakeSource()
	d := NewDrainer(src)

	d.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if _, err := d.Snapshot(); err != nil && !errors.Is(err, ErrNoFrame) {
					t.Errorf("Snapshot: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if atomic.LoadInt32(&src.torn) != 0 {
		t.Error("grab and retrieve overlapped: mutual exclusion violated")
	}
}
