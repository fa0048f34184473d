package quad

import (
	"log/slog"

	"github.com/gogpu/quad/internal/gpucore"
)

// SetLogger configures the logger for quad and all its internal packages.
// By default, quad produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by quad:
//   - [slog.LevelDebug]: buffer growth, pipeline builds, bind group creation
//   - [slog.LevelInfo]: lifecycle events (adapter selected, swapchain rebuilt, frame rate)
//   - [slog.LevelWarn]: skipped frames, resource release errors
//
// Example:
//
//	quad.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	gpucore.SetLogger(l)
}

// Logger returns the current logger used by quad.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return gpucore.Logger()
}
