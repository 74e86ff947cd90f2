// Package logging provides a minimal leveled logging facility on top of the
// standard library's log package. Its Logger type is nil-safe: a nil logger
// is valid and simply discards everything, so components can accept an
// optional logger without guarding every call site.
package logging

import (
	"log"
	"os"
)

func init() {
	// Send the global logger to standard error so that log output doesn't
	// interleave with stream output on standard output.
	log.SetOutput(os.Stderr)
}

// Level represents a log level. Levels are ordered by verbosity, so they can
// be compared directly: a logger emits a message if the message's level is
// at or below the logger's own.
type Level uint

const (
	// LevelDisabled disables logging entirely.
	LevelDisabled Level = iota
	// LevelError logs only errors.
	LevelError
	// LevelWarn adds warnings.
	LevelWarn
	// LevelInfo adds basic execution information.
	LevelInfo
	// LevelDebug adds advanced execution information.
	LevelDebug
	// LevelTrace adds low-level execution information.
	LevelTrace
)

// levelNames maps level names to values for NameToLevel.
var levelNames = map[string]Level{
	"disabled": LevelDisabled,
	"error":    LevelError,
	"warn":     LevelWarn,
	"info":     LevelInfo,
	"debug":    LevelDebug,
	"trace":    LevelTrace,
}

// NameToLevel converts a string-based representation of a log level to the
// appropriate Level value. It returns a boolean indicating whether or not
// the conversion was valid. If the name is invalid, LevelDisabled is
// returned.
func NameToLevel(name string) (Level, bool) {
	level, ok := levelNames[name]
	return level, ok
}

// String provides a human-readable representation of a log level.
func (l Level) String() string {
	for name, level := range levelNames {
		if level == l {
			return name
		}
	}
	return "unknown"
}
