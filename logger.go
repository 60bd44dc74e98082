package trscan

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/trscan/internal/gpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with processing on any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for trscan and its GPU core.
// By default, trscan produces no log output.
//
// Pass nil to restore the default silent behavior.
//
// Log levels used by trscan:
//   - [slog.LevelDebug]: buffer sizes, workgroup counts, pipeline state
//   - [slog.LevelInfo]: adapter selected, device acquired, kernel loaded
//   - [slog.LevelWarn]: processing disabled, kernel load failure
//
// Example:
//
//	trscan.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
}

// Logger returns the current logger used by trscan.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
