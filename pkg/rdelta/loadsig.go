package rdelta

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// loadsigState is the state of a signature-loading job. The job parses a
// signature stream into an in-memory Signature, which becomes available from
// Job.Signature once the job completes. The job produces no stream output.
type loadsigState struct {
	// sig is the signature being populated.
	sig *Signature
	// entrySize is the serialized size of one block entry.
	entrySize int

	// stHeader and stEntries are the pre-bound state functions.
	stHeader, stEntries stateFn
}

// NewLoadSignatureJob creates a job that parses a signature stream. Once the
// job completes, the loaded signature is available from Job.Signature; call
// BuildHashTable on it before generating deltas.
func NewLoadSignatureJob() *Job {
	job := newJob("loadsig")
	state := &loadsigState{}
	state.stHeader = state.header
	state.stEntries = state.entries
	job.state = state.stHeader
	return job
}

// header parses and validates the signature header.
func (s *loadsigState) header(j *Job) (Result, error) {
	// Accumulate the fixed-size header.
	header, eof, result := j.fillScratch(12)
	if result != running {
		return result, nil
	}
	if eof && len(header) < 12 {
		// A recognizably foreign stream is reported as such; anything that
		// starts like a signature but stops short is a truncation.
		if len(header) >= 4 && !Magic(binary.BigEndian.Uint32(header)).isSignature() {
			return running, errors.Wrap(ErrBadMagic, "unrecognized signature header")
		}
		return running, errors.Wrap(ErrInputEnded, "signature ended inside header")
	}

	// Decode and validate the fields.
	magic := Magic(binary.BigEndian.Uint32(header[0:]))
	blockLen := binary.BigEndian.Uint32(header[4:])
	strongLen := binary.BigEndian.Uint32(header[8:])
	if !magic.isSignature() {
		return running, errors.Wrapf(ErrBadMagic, "unrecognized signature magic %v", magic)
	} else if blockLen == 0 {
		return running, errors.Wrap(ErrCorrupt, "signature has zero block length")
	} else if strongLen == 0 || strongLen > magic.strongSumLength() {
		return running, errors.Wrapf(ErrCorrupt, "signature strong sum length %d out of range", strongLen)
	}

	// Set up the signature and move on to the block entries.
	s.sig = &Signature{
		Magic:     magic,
		BlockLen:  blockLen,
		StrongLen: strongLen,
	}
	s.entrySize = 4 + int(strongLen)
	j.sig = s.sig
	j.stats.BlockLen = blockLen
	j.resetScratch()
	j.state = s.stEntries
	return running, nil
}

// entries parses one block entry per transition. The stream ends at a clean
// entry boundary; there is no explicit count or terminator.
func (s *loadsigState) entries(j *Job) (Result, error) {
	entry, eof, result := j.fillScratch(s.entrySize)
	if result != running {
		return result, nil
	}
	if eof && len(entry) < s.entrySize {
		if len(entry) == 0 {
			j.state = stateDone
			return running, nil
		}
		return running, errors.Wrap(ErrInputEnded, "signature ended inside a block entry")
	}

	// Record the entry.
	weak := binary.BigEndian.Uint32(entry)
	if err := s.sig.AppendBlock(weak, entry[4:]); err != nil {
		return running, err
	}
	j.resetScratch()
	j.stats.SigBlocks++
	return running, nil
}
