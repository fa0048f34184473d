package quad

import "time"

// Stats reports renderer activity.
type Stats struct {
	// Presented counts frames submitted and presented.
	Presented uint64
	// Skipped counts frames abandoned for a recoverable reason.
	Skipped uint64
	// Dropped counts frames abandoned because End returned an error.
	Dropped uint64
	// Rebuilds counts swapchain rebuilds.
	Rebuilds uint64

	// Per-frame counts of the last recorded frame.
	Quads        int
	Segments     int
	QuadDraws    int
	OverlayDraws int

	// Delta is the time between the last two presented frames; AvgFrame
	// is its exponential moving average.
	Delta    time.Duration
	AvgFrame time.Duration
	FPS      float64
}
