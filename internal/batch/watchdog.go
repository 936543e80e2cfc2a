package batch

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
)

// Watchdog samples heap usage between batches. Above the ceiling it asks the
// runtime to release memory and logs a warning; it never aborts a run.
type Watchdog struct {
	ceiling uint64
	logger  *slog.Logger
	sample  func() uint64

	// Trips counts samples that crossed the ceiling.
	Trips int
}

func NewWatchdog(ceilingBytes uint64, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{ceiling: ceilingBytes, logger: logger, sample: heapAlloc}
}

func heapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// Check samples the heap once. It reports whether the ceiling was exceeded.
func (w *Watchdog) Check() bool {
	if w == nil || w.ceiling == 0 {
		return false
	}
	used := w.sample()
	if used <= w.ceiling {
		return false
	}
	w.Trips++
	debug.FreeOSMemory()
	w.logger.Warn("heap above ceiling, requested garbage collection",
		slog.Uint64("heap_bytes", used),
		slog.Uint64("ceiling_bytes", w.ceiling))
	return true
}

// Between adapts the watchdog to Options.Between.
func (w *Watchdog) Between(ctx context.Context, done, total int) error {
	w.Check()
	return ctx.Err()
}
