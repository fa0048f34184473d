// Package timing tracks frame pacing: frame count, per-frame delta, an
// exponential moving average of frame time and a throttled FPS log line.
package timing

import (
	"time"

	"github.com/gogpu/quad/internal/gpucore"
)

const (
	// Smoothing is the weight the running average keeps per frame.
	Smoothing = 0.9
	// LogInterval throttles the FPS log line.
	LogInterval = time.Second
)

// Stats is a snapshot of the meter.
type Stats struct {
	Frames   uint64
	Delta    time.Duration
	AvgFrame time.Duration
	FPS      float64
}

// Meter measures presented frames.
type Meter struct {
	now func() time.Time

	frames  uint64
	last    time.Time
	delta   time.Duration
	avg     float64 // seconds
	lastLog time.Time
	logged  uint64
}

// New returns a meter reading time from now. A nil now uses time.Now.
func New(now func() time.Time) *Meter {
	if now == nil {
		now = time.Now
	}
	return &Meter{now: now}
}

// Tick records one frame and returns the updated stats.
func (m *Meter) Tick() Stats {
	t := m.now()
	m.frames++
	if m.last.IsZero() {
		m.last, m.lastLog, m.logged = t, t, m.frames
		return m.Stats()
	}
	m.delta = t.Sub(m.last)
	m.last = t
	d := m.delta.Seconds()
	if m.avg == 0 {
		m.avg = d
	} else {
		m.avg = Smoothing*m.avg + (1-Smoothing)*d
	}

	if since := t.Sub(m.lastLog); since >= LogInterval {
		frames := m.frames - m.logged
		gpucore.Logger().Info("quad: frame rate",
			"fps", float64(frames)/since.Seconds(),
			"avg_frame_ms", m.avg*1000,
			"frames", m.frames)
		m.lastLog, m.logged = t, m.frames
	}
	return m.Stats()
}

// Stats returns the current snapshot.
func (m *Meter) Stats() Stats {
	s := Stats{
		Frames:   m.frames,
		Delta:    m.delta,
		AvgFrame: time.Duration(m.avg * float64(time.Second)),
	}
	if m.avg > 0 {
		s.FPS = 1 / m.avg
	}
	return s
}
