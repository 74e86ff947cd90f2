package rdelta

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// patchState is the state of a patch-application job. The job decodes a
// delta stream command by command, copying literal data straight through and
// servicing copy commands from the basis reader.
type patchState struct {
	// basis provides random access reads of the basis. Short reads are
	// legal and are serviced by re-reading the remainder; os.File and
	// bytes.Reader both satisfy the interface natively.
	basis io.ReaderAt
	// basisBuf is the staging buffer for basis reads.
	basisBuf []byte
	// entry is the table entry of the command whose operands are being
	// accumulated.
	entry *protoEntry
	// copyOff and copyLeft track the basis range still to be copied for the
	// current copy command.
	copyOff  int64
	copyLeft uint64

	// stMagic, stCommand, stOperands, and stCopy are the pre-bound state
	// functions.
	stMagic, stCommand, stOperands, stCopy stateFn
}

// NewPatchJob creates a job that applies the delta stream fed to it,
// emitting the reconstructed file. Basis ranges named by the delta's copy
// commands are read through basis; the job performs no bounds checking of
// its own, so out-of-range copies surface as read errors from the basis.
func NewPatchJob(basis io.ReaderAt) (*Job, error) {
	// Validate arguments.
	if basis == nil {
		return nil, errors.Wrap(ErrParam, "nil basis reader")
	}

	// Create the job.
	job := newJob("patch")
	state := &patchState{
		basis:    basis,
		basisBuf: make([]byte, driveBufferSize),
	}
	state.stMagic = state.magic
	state.stCommand = state.command
	state.stOperands = state.operands
	state.stCopy = state.copyBlock
	job.state = state.stMagic

	// Success.
	return job, nil
}

// magic verifies the delta header.
func (s *patchState) magic(j *Job) (Result, error) {
	header, eof, result := j.fillScratch(4)
	if result != running {
		return result, nil
	}
	if eof && len(header) < 4 {
		return running, errors.Wrap(ErrInputEnded, "delta ended inside magic")
	}
	if magic := Magic(binary.BigEndian.Uint32(header)); magic != DeltaMagic {
		return running, errors.Wrapf(ErrBadMagic, "expected delta stream, got %v", magic)
	}
	j.resetScratch()
	j.state = s.stCommand
	return running, nil
}

// command reads and dispatches one command byte.
func (s *patchState) command(j *Job) (Result, error) {
	data, eof, result := j.fillScratch(1)
	if result != running {
		return result, nil
	}
	if eof && len(data) == 0 {
		return running, errors.Wrap(ErrInputEnded, "delta ended before end command")
	}
	opcode := data[0]
	j.resetScratch()

	entry := &prototab[opcode]
	switch entry.kind {
	case kindEnd:
		j.state = stateDone
		return running, nil
	case kindLiteral:
		if entry.immediate {
			return s.startLiteral(j, entry, uint64(opcode))
		}
	case kindCopy:
	case kindSignature:
		return running, errors.Wrapf(ErrCorrupt, "signature command %#02x inside delta", opcode)
	default:
		return running, errors.Wrapf(ErrCorrupt, "unexpected command %#02x", opcode)
	}

	// The command carries explicit operands.
	s.entry = entry
	j.state = s.stOperands
	return running, nil
}

// operands accumulates a command's explicit operands and begins executing
// it.
func (s *patchState) operands(j *Job) (Result, error) {
	want := int(s.entry.len1) + int(s.entry.len2)
	data, eof, result := j.fillScratch(want)
	if result != running {
		return result, nil
	}
	if eof && len(data) < want {
		return running, errors.Wrap(ErrInputEnded, "delta ended inside command operands")
	}
	v1 := parseUint(data, s.entry.len1)
	v2 := parseUint(data[s.entry.len1:], s.entry.len2)
	j.resetScratch()

	if s.entry.kind == kindLiteral {
		return s.startLiteral(j, s.entry, v1)
	}

	// Copy command.
	if v2 == 0 {
		return running, errors.Wrap(ErrCorrupt, "zero-length copy")
	} else if v1 > math.MaxInt64 {
		return running, errors.Wrapf(ErrCorrupt, "unbelievable copy offset %d", v1)
	}
	j.stats.CopyCmds++
	j.stats.CopyBytes += int64(v2)
	j.stats.CopyCmdBytes += int64(s.entry.totalSize())
	s.copyOff = int64(v1)
	s.copyLeft = v2
	j.state = s.stCopy
	return running, nil
}

// startLiteral sets up the copy-through of a literal command's data.
func (s *patchState) startLiteral(j *Job, entry *protoEntry, length uint64) (Result, error) {
	if length == 0 {
		return running, errors.Wrap(ErrCorrupt, "zero-length literal")
	}
	j.stats.LitCmds++
	j.stats.LitBytes += int64(length)
	j.stats.LitCmdBytes += int64(entry.totalSize())
	j.copyThrough = length
	j.state = s.stCommand
	return running, nil
}

// copyBlock services one basis read per transition, staging whatever the
// basis returns. Short reads simply leave a remainder for the next
// transition.
func (s *patchState) copyBlock(j *Job) (Result, error) {
	want := len(s.basisBuf)
	if uint64(want) > s.copyLeft {
		want = int(s.copyLeft)
	}
	n, err := s.basis.ReadAt(s.basisBuf[:want], s.copyOff)
	if n > 0 {
		j.data = s.basisBuf[:n]
		s.copyOff += int64(n)
		s.copyLeft -= uint64(n)
		if s.copyLeft == 0 {
			j.state = s.stCommand
		}
		return running, nil
	}
	if err == nil {
		return running, errors.Errorf("basis read at %d returned no data", s.copyOff)
	}
	return running, errors.Wrap(err, "unable to read basis")
}
