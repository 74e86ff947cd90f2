package rdelta

import (
	"github.com/pkg/errors"
)

// Result indicates the disposition of a job after an Iterate call. It is only
// meaningful when Iterate returns a nil error.
type Result uint8

const (
	// Done indicates that the job has completed successfully. Subsequent
	// Iterate calls will continue to return Done.
	Done Result = iota
	// Blocked indicates that the job needs more input data, more output
	// space, or both, before it can make further progress.
	Blocked
	// running is an internal result indicating that a state transition
	// completed and the engine should continue driving the state machine. It
	// is never returned to callers.
	running
)

// String provides a human-readable representation of the result.
func (r Result) String() string {
	switch r {
	case Done:
		return "done"
	case Blocked:
		return "blocked"
	case running:
		return "running"
	default:
		return "unknown"
	}
}

// The error taxonomy for streams and jobs. Errors returned by Iterate wrap
// one of these sentinels (use errors.Is to classify them), except for I/O
// errors from external callbacks and writers, which are propagated with
// context but without reclassification.
var (
	// ErrInputEnded indicates an unexpected end of the input stream, perhaps
	// due to a truncated file or a dropped network connection.
	ErrInputEnded = errors.New("input ended unexpectedly")
	// ErrBadMagic indicates that the bytes at the start of a stream don't
	// match any known magic number. The stream is probably not an rdelta
	// file, or is of the wrong kind for the operation.
	ErrBadMagic = errors.New("bad magic number")
	// ErrCorrupt indicates an unbelievable value in a stream.
	ErrCorrupt = errors.New("stream corrupt")
	// ErrUnimplemented indicates a command that this library doesn't
	// support.
	ErrUnimplemented = errors.New("operation not implemented")
	// ErrMemory indicates an allocation failure in an external collaborator.
	// The library itself relies on the runtime for allocation and never
	// returns it, but callbacks may.
	ErrMemory = errors.New("out of memory")
	// ErrParam indicates an invalid argument passed by the caller.
	ErrParam = errors.New("invalid parameter")
	// ErrInternal indicates a violated invariant, i.e. a bug in the library.
	ErrInternal = errors.New("internal error")
)

// ResultDescription returns a short English description of an error returned
// by this library, classifying it against the error taxonomy. Errors from
// external collaborators are described as I/O errors.
func ResultDescription(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInputEnded):
		return "unexpected end of input"
	case errors.Is(err, ErrBadMagic):
		return "bad magic number at start of stream"
	case errors.Is(err, ErrCorrupt):
		return "stream corrupt"
	case errors.Is(err, ErrUnimplemented):
		return "unimplemented command"
	case errors.Is(err, ErrMemory):
		return "out of memory"
	case errors.Is(err, ErrParam):
		return "bad parameter"
	case errors.Is(err, ErrInternal):
		return "internal error"
	default:
		return "error in file or network IO"
	}
}
