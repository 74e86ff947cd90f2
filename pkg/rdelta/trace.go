package rdelta

import (
	"sync/atomic"

	"github.com/rdelta-io/rdelta/pkg/logging"
)

// traceLevel is the process-wide default trace level for newly created jobs,
// stored atomically so that it can be adjusted from any thread. Per-job
// loggers set with Job.SetLogger always take precedence; nothing per-job
// ever lives here.
var traceLevel uint32 = uint32(logging.LevelDisabled)

// SetTraceLevel sets the least important message severity that jobs created
// afterwards will log by default. Existing jobs are unaffected.
func SetTraceLevel(level logging.Level) {
	atomic.StoreUint32(&traceLevel, uint32(level))
}

// TraceLevel returns the current process-wide default trace level.
func TraceLevel() logging.Level {
	return logging.Level(atomic.LoadUint32(&traceLevel))
}

// traceLogger creates the default logger for a new job with the given
// operation name. It returns nil when tracing is disabled, which disables
// logging entirely through the logger's nil-safety.
func traceLogger(op string) *logging.Logger {
	level := TraceLevel()
	if level == logging.LevelDisabled {
		return nil
	}
	return logging.NewLogger(level, op)
}
