package frame

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/quad/internal/gpucore"
	"github.com/gogpu/quad/internal/gpucore/gputest"
	"github.com/gogpu/quad/internal/gpuerr"
)

// manualQueue lets a test decide when submissions complete.
type manualQueue struct {
	hal.Queue
	submitted atomic.Uint64
	completed atomic.Uint64
}

func (q *manualQueue) Submit([]hal.CommandBuffer) (uint64, error) {
	return q.submitted.Add(1), nil
}

func (q *manualQueue) PollCompleted() uint64 { return q.completed.Load() }

type fakeTarget struct {
	acquires  int
	presents  int
	discards  int
	releases  int
	failNext  error
	lastFence hal.Fence
}

func (t *fakeTarget) Acquire(fence hal.Fence) (*Image, error) {
	if err := t.failNext; err != nil {
		t.failNext = nil
		return nil, err
	}
	t.acquires++
	t.lastFence = fence
	return &Image{Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm}, nil
}

func (t *fakeTarget) Present(*Image) error { t.presents++; return nil }
func (t *fakeTarget) Discard(*Image)       { t.discards++ }
func (t *fakeTarget) Release(*Image)       { t.releases++ }

func newRing(t *testing.T, cfg Config) (*Ring, *manualQueue) {
	t.Helper()
	base := gputest.NewShared(t)
	q := &manualQueue{Queue: base.Queue}
	r, err := New(&gpucore.Shared{Device: base.Device, Queue: q}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		q.completed.Store(q.submitted.Load())
		r.Close()
	})
	return r, q
}

func cycle(t *testing.T, r *Ring, target Target) int {
	t.Helper()
	f, err := r.Acquire(target)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := r.Submit(f); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return f.Slot
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := Config{}.withDefaults()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Slots != DefaultSlots || cfg.FenceTimeout != DefaultFenceTimeout || cfg.PollInterval != DefaultPollInterval {
		t.Errorf("defaults = %+v", cfg)
	}
	for _, n := range []int{-1, MaxSlots + 1} {
		if _, err := (Config{Slots: n}).withDefaults(); err == nil {
			t.Errorf("Slots=%d accepted", n)
		}
	}
}

func TestRoundRobin(t *testing.T) {
	r, q := newRing(t, Config{Slots: 3})
	target := &fakeTarget{}
	var got []int
	for range 5 {
		q.completed.Store(q.submitted.Load())
		got = append(got, cycle(t, r, target))
	}
	want := []int{0, 1, 2, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slots = %v, want %v", got, want)
		}
	}
	if target.presents != 5 || r.Submitted() != 5 {
		t.Errorf("presents = %d, submitted = %d", target.presents, r.Submitted())
	}
}

func TestBackpressure(t *testing.T) {
	r, q := newRing(t, Config{Slots: 2, FenceTimeout: 10 * time.Second, PollInterval: time.Millisecond})
	target := &fakeTarget{}

	cycle(t, r, target)
	cycle(t, r, target)

	type result struct {
		f   *Frame
		err error
	}
	done := make(chan result, 1)
	go func() {
		f, err := r.Acquire(target)
		done <- result{f, err}
	}()

	select {
	case res := <-done:
		t.Fatalf("third Acquire returned before slot 0 completed: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}

	q.completed.Store(1)

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Acquire: %v", res.err)
		}
		if res.f.Slot != 0 {
			t.Errorf("slot = %d, want 0", res.f.Slot)
		}
		if err := r.Submit(res.f); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Acquire still blocked after slot 0 completed")
	}
}

func TestFenceTimeoutIsDeviceLost(t *testing.T) {
	r, _ := newRing(t, Config{Slots: 1, FenceTimeout: 20 * time.Millisecond, PollInterval: time.Millisecond})
	target := &fakeTarget{}
	cycle(t, r, target)

	_, err := r.Acquire(target)
	if !errors.Is(err, gpuerr.ErrDeviceLost) {
		t.Fatalf("Acquire error = %v, want ErrDeviceLost", err)
	}
	if r.Next() != 0 || r.Active() {
		t.Errorf("ring moved after timeout: next=%d active=%v", r.Next(), r.Active())
	}
}

func TestCloseAfterTimeoutDoesNotWait(t *testing.T) {
	r, _ := newRing(t, Config{Slots: 1, FenceTimeout: 200 * time.Millisecond, PollInterval: time.Millisecond})
	target := &fakeTarget{}
	cycle(t, r, target)

	if _, err := r.Acquire(target); !errors.Is(err, gpuerr.ErrDeviceLost) {
		t.Fatalf("Acquire error = %v, want ErrDeviceLost", err)
	}
	if !r.Lost() {
		t.Fatal("ring not marked lost after timeout")
	}

	start := time.Now()
	if _, err := r.Acquire(target); !errors.Is(err, gpuerr.ErrDeviceLost) {
		t.Errorf("second Acquire error = %v, want ErrDeviceLost", err)
	}
	r.Close()
	if d := time.Since(start); d > 100*time.Millisecond {
		t.Errorf("Acquire and Close on a lost ring took %v, want no fence wait", d)
	}
	if target.releases != 1 {
		t.Errorf("releases = %d, want 1", target.releases)
	}
}

func TestSingleOpenFrame(t *testing.T) {
	r, _ := newRing(t, Config{})
	target := &fakeTarget{}
	f, err := r.Acquire(target)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Acquire(target); !errors.Is(err, gpuerr.ErrFrameActive) {
		t.Errorf("second Acquire = %v, want ErrFrameActive", err)
	}
	if err := r.Submit(&Frame{}); !errors.Is(err, ErrStaleFrame) {
		t.Errorf("Submit(stale) = %v", err)
	}
	if err := r.Submit(f); err != nil {
		t.Fatal(err)
	}
}

func TestAcquireFailureDoesNotAdvance(t *testing.T) {
	r, q := newRing(t, Config{Slots: 2})
	target := &fakeTarget{failNext: gpuerr.ErrFrameNotReady}

	if _, err := r.Acquire(target); !errors.Is(err, gpuerr.ErrFrameNotReady) {
		t.Fatalf("Acquire = %v, want ErrFrameNotReady", err)
	}
	if r.Next() != 0 || r.Active() {
		t.Fatalf("ring advanced: next=%d", r.Next())
	}
	if got := cycle(t, r, target); got != 0 {
		t.Errorf("slot after failure = %d, want 0", got)
	}
	if q.submitted.Load() != 1 {
		t.Errorf("submissions = %d, want 1", q.submitted.Load())
	}
}

func TestDiscardSubmitsNothing(t *testing.T) {
	r, q := newRing(t, Config{Slots: 2})
	target := &fakeTarget{}

	f, err := r.Acquire(target)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Discard(f); err != nil {
		t.Fatal(err)
	}
	if q.submitted.Load() != 0 || target.presents != 0 || target.discards != 1 {
		t.Errorf("submitted=%d presents=%d discards=%d", q.submitted.Load(), target.presents, target.discards)
	}
	if r.Next() != 0 {
		t.Errorf("Next = %d after discard, want 0", r.Next())
	}
	if err := r.Discard(f); !errors.Is(err, ErrStaleFrame) {
		t.Errorf("double Discard = %v", err)
	}
}

func TestRetireWaitsForCompletion(t *testing.T) {
	r, q := newRing(t, Config{Slots: 2})
	target := &fakeTarget{}

	cycle(t, r, target) // submission 1
	released := 0
	r.Retire(func() { released++ })

	cycle(t, r, target) // slot 1, nothing completed yet
	if released != 0 {
		t.Fatal("release ran before its submission completed")
	}

	q.completed.Store(1)
	cycle(t, r, target) // slot 0 again, collects
	if released != 1 {
		t.Errorf("released = %d, want 1", released)
	}
	if target.releases == 0 {
		t.Error("presented images were never released")
	}

	q.completed.Store(q.submitted.Load())
	if err := r.WaitIdle(); err != nil {
		t.Fatal(err)
	}
	if r.Pending() != 0 {
		t.Errorf("Pending = %d after WaitIdle", r.Pending())
	}
}

func TestClosedRing(t *testing.T) {
	r, _ := newRing(t, Config{})
	r.Close()
	if _, err := r.Acquire(&fakeTarget{}); !errors.Is(err, gpuerr.ErrClosed) {
		t.Errorf("Acquire after Close = %v", err)
	}
}
