package rdelta

import (
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/rdelta-io/rdelta/pkg/logging"
)

// Buffers describes the input and output available to a single Iterate call.
// The job consumes bytes from the front of In and writes bytes to the front
// of Out, reslicing both to mark its progress, so on return In holds the
// unconsumed input and Out the unused output space. The caller observes the
// number of bytes produced as the difference between the lengths of Out
// before and after the call. The library performs no I/O of its own; this
// descriptor is its entire I/O contract.
type Buffers struct {
	// In is the available input data.
	In []byte
	// InEOF indicates that no more input exists beyond In. Once set, the
	// final block checksum (or equivalent) runs across whatever remains,
	// without waiting for more data.
	InEOF bool
	// Out is the available output space.
	Out []byte
}

// stateFn is a single state of a job's state machine. It returns running to
// indicate that a transition completed and the machine should be driven
// further, Blocked to suspend until the caller provides more input, or Done
// when the machine has terminated. Output-space suspension is handled by the
// engine itself when it drains staged output.
type stateFn func(*Job) (Result, error)

// Job is a resumable operation: signature generation, signature loading,
// delta generation, or patch application. A job is advanced by Iterate calls
// and suspends whenever the supplied buffers are exhausted. Jobs are not safe
// for concurrent use, but independent jobs may run on independent threads.
type Job struct {
	// op is the human-readable operation name.
	op string
	// state is the current state of the job's state machine.
	state stateFn
	// b is the buffers descriptor for the Iterate call currently executing.
	b *Buffers
	// err is the job's terminal error, if any. Once set, all subsequent
	// Iterate calls return it unchanged.
	err error
	// done indicates that the job has completed successfully.
	done bool

	// head is staged command/header output, drained to the output buffer
	// before anything else. headOff marks the drained prefix.
	head    []byte
	headOff int
	// data is staged bulk output, drained after head. It may alias a scratch
	// region owned by the active state, which is safe because the engine
	// fully drains it before running another state transition.
	data []byte
	// copyThrough is the number of input bytes still to be streamed directly
	// to the output.
	copyThrough uint64

	// scratch is the input accumulation buffer used by fillScratch.
	scratch []byte

	// sig is the signature produced by a signature-loading job. It is only
	// valid once the job is done.
	sig *Signature

	// stats is the job's statistics record.
	stats Statistics
	// logger is the job's logger, which may be nil.
	logger *logging.Logger
}

// newJob creates a job shell for the named operation.
func newJob(op string) *Job {
	return &Job{
		op: op,
		stats: Statistics{
			Op:    op,
			Start: time.Now(),
		},
		logger: traceLogger(op),
	}
}

// SetLogger replaces the job's logger. A nil logger disables logging for the
// job regardless of the process-wide trace level.
func (j *Job) SetLogger(logger *logging.Logger) {
	j.logger = logger
}

// Statistics returns the job's statistics record. The record is updated in
// place while the job runs and must not be read concurrently with Iterate.
func (j *Job) Statistics() *Statistics {
	return &j.stats
}

// Signature returns the signature produced by a signature-loading job. It
// returns nil for other job types and for loading jobs that haven't yet
// completed. The returned signature is not yet indexed; call BuildHashTable
// before using it for delta generation.
func (j *Job) Signature() *Signature {
	if !j.done {
		return nil
	}
	return j.sig
}

// fail latches a terminal error. Every Iterate call after the first failure
// reports the same error.
func (j *Job) fail(err error) error {
	j.err = err
	j.stats.End = time.Now()
	if j.logger != nil {
		j.logger.Error(err)
	}
	return err
}

// Iterate advances the job as far as the supplied buffers allow. It returns
// Done when the job has finished, Blocked when it needs more input and/or
// output space, or an error from the stream taxonomy. A single call is not
// interruptible; suspension is only visible at call boundaries. Each call
// either consumes input, produces output, or completes a fixed-cost state
// transition, so driving a job to completion never spins.
func (j *Job) Iterate(buffers *Buffers) (Result, error) {
	// Sanity check arguments and prior state.
	if buffers == nil {
		return Blocked, j.fail(errors.Wrap(ErrParam, "nil buffers"))
	}
	if j.err != nil {
		return Blocked, j.err
	}
	if j.done {
		return Done, nil
	}

	// Make the buffers available to state functions for the duration of the
	// call.
	j.b = buffers
	defer func() {
		j.b = nil
	}()

	// Drive the state machine, draining staged output between transitions so
	// that states always run with their previous emissions safely out of any
	// aliased scratch regions.
	for {
		if result, err := j.pump(); err != nil {
			return Blocked, j.fail(err)
		} else if result == Blocked {
			return Blocked, nil
		}

		result, err := j.state(j)
		if err != nil {
			return Blocked, j.fail(err)
		} else if result == Blocked {
			return Blocked, nil
		} else if result == Done {
			if pumped, err := j.pump(); err != nil {
				return Blocked, j.fail(err)
			} else if pumped == Blocked {
				return Blocked, nil
			}
			j.done = true
			j.stats.End = time.Now()
			if j.logger != nil {
				j.logger.Debugf("%v", &j.stats)
			}
			return Done, nil
		}
	}
}

// pump moves staged output (head bytes, then data bytes, then any pending
// input-to-output copy) into the output buffer. It returns Blocked if it had
// to suspend for buffer space or input, and running once everything staged
// has been moved.
func (j *Job) pump() (Result, error) {
	// Drain staged header bytes.
	if j.headOff < len(j.head) {
		n := copy(j.b.Out, j.head[j.headOff:])
		j.b.Out = j.b.Out[n:]
		j.headOff += n
		j.stats.OutBytes += int64(n)
		if j.headOff < len(j.head) {
			return Blocked, nil
		}
		j.head = j.head[:0]
		j.headOff = 0
	}

	// Drain staged data bytes.
	if len(j.data) > 0 {
		n := copy(j.b.Out, j.data)
		j.b.Out = j.b.Out[n:]
		j.data = j.data[n:]
		j.stats.OutBytes += int64(n)
		if len(j.data) > 0 {
			return Blocked, nil
		}
		j.data = nil
	}

	// Stream any pending copy-through bytes from input to output without
	// intermediate buffering.
	for j.copyThrough > 0 {
		if len(j.b.Out) == 0 {
			return Blocked, nil
		}
		if len(j.b.In) == 0 {
			if j.b.InEOF {
				return Blocked, errors.Wrap(ErrInputEnded, "input ended inside literal data")
			}
			return Blocked, nil
		}
		n := len(j.b.In)
		if n > len(j.b.Out) {
			n = len(j.b.Out)
		}
		if uint64(n) > j.copyThrough {
			n = int(j.copyThrough)
		}
		copy(j.b.Out, j.b.In[:n])
		j.b.In = j.b.In[n:]
		j.b.Out = j.b.Out[n:]
		j.copyThrough -= uint64(n)
		j.stats.InBytes += int64(n)
		j.stats.OutBytes += int64(n)
	}

	// Everything staged has been moved.
	return running, nil
}

// fillScratch accumulates input into the scratch buffer until it holds want
// bytes. It returns the scratch contents, an EOF indication, and a result.
// The result is Blocked if more input is needed and might still arrive. At
// EOF, whatever is available (possibly less than want) is returned with eof
// set, and the caller decides whether a short read is acceptable. The caller
// must invoke resetScratch once it has consumed the returned bytes.
func (j *Job) fillScratch(want int) ([]byte, bool, Result) {
	for len(j.scratch) < want {
		if len(j.b.In) == 0 {
			if j.b.InEOF {
				return j.scratch, true, running
			}
			return nil, false, Blocked
		}
		take := want - len(j.scratch)
		if take > len(j.b.In) {
			take = len(j.b.In)
		}
		j.scratch = append(j.scratch, j.b.In[:take]...)
		j.b.In = j.b.In[take:]
		j.stats.InBytes += int64(take)
	}
	return j.scratch, false, running
}

// resetScratch discards the accumulated scratch contents, retaining the
// underlying storage.
func (j *Job) resetScratch() {
	j.scratch = j.scratch[:0]
}

// stateDone is the terminal state of a successful job. It is idempotent so
// that a job which finished its work but still had staged output to drain
// can be re-entered.
func stateDone(j *Job) (Result, error) {
	return Done, nil
}

// driveBufferSize is the buffer size used by Drive and for basis reads
// during patching: a reasonable amount to hold in memory while keeping
// per-call overhead negligible.
const driveBufferSize = 64 * 1024

// Drive actively pumps the job to completion, reading input from in and
// writing output to out. It is a convenience loop with no semantics of its
// own beyond the Iterate contract. Jobs that produce no stream output (such
// as signature loading) may be driven with a nil writer.
func (j *Job) Drive(in io.Reader, out io.Writer) error {
	inbuf := make([]byte, driveBufferSize)
	outbuf := make([]byte, driveBufferSize)
	var buffers Buffers
	var readErr error
	for {
		// Top up the input buffer if the job has drained it and the source
		// hasn't ended. A read error is deferred until the data read
		// alongside it has been processed.
		if len(buffers.In) == 0 && !buffers.InEOF && readErr == nil {
			n, err := in.Read(inbuf)
			buffers.In = inbuf[:n]
			if err == io.EOF {
				buffers.InEOF = true
			} else if err != nil {
				readErr = errors.Wrap(err, "unable to read input")
			}
		}

		// Advance the job.
		buffers.Out = outbuf
		result, err := j.Iterate(&buffers)

		// Flush whatever was produced, even if the job failed, so that
		// output remains prefix-consistent with the job's progress.
		if produced := outbuf[:len(outbuf)-len(buffers.Out)]; len(produced) > 0 {
			if _, werr := out.Write(produced); werr != nil {
				return errors.Wrap(werr, "unable to write output")
			}
		}

		// Check for termination.
		if err != nil {
			return err
		} else if result == Done {
			return nil
		}

		// The job is blocked. If the input source failed, the job will never
		// unblock.
		if readErr != nil && len(buffers.In) == 0 {
			return readErr
		}
	}
}
