package rdelta

import (
	"encoding/binary"
	"hash"

	"github.com/rdelta-io/rdelta/pkg/rollsum"
)

// sigState is the state of a signature-generation job. The job reads the
// basis block by block and emits the signature header followed by one weak
// and one truncated strong sum per block.
type sigState struct {
	// magic is the signature format being generated.
	magic Magic
	// blockLen is the nominal block length.
	blockLen uint32
	// strongLen is the number of strong sum bytes emitted per block.
	strongLen uint32
	// weak is the rolling checksum, reset for each block.
	weak rollsum.Rolling
	// strong is the strong hash, reset for each block.
	strong hash.Hash
	// strongSum is scratch space for strong sum results.
	strongSum [MaxStrongLength]byte

	// stHeader and stBlocks are the pre-bound state functions.
	stHeader, stBlocks stateFn
}

// NewSignatureJob creates a job that generates a signature for the basis
// data fed to it. A zero magic, zero block length, and the StrongLen
// sentinels select recommended values as for SigArgs with an unknown basis
// size; use SigArgs directly when the basis size is known.
func NewSignatureJob(magic Magic, blockLen uint32, strongLen StrongLen) (*Job, error) {
	// Resolve and validate the parameters.
	magic, blockLen, resolvedStrongLen, err := SigArgs(-1, magic, blockLen, strongLen)
	if err != nil {
		return nil, err
	}

	// Create the job.
	job := newJob("signature")
	state := &sigState{
		magic:     magic,
		blockLen:  blockLen,
		strongLen: resolvedStrongLen,
		weak:      magic.newRollingSum(),
		strong:    magic.newStrongHash(),
	}
	state.stHeader = state.header
	state.stBlocks = state.blocks
	job.state = state.stHeader
	job.stats.BlockLen = blockLen

	// Success.
	return job, nil
}

// header emits the signature header.
func (s *sigState) header(j *Job) (Result, error) {
	j.head = appendMagic(j.head, s.magic)
	var fields [8]byte
	binary.BigEndian.PutUint32(fields[0:], s.blockLen)
	binary.BigEndian.PutUint32(fields[4:], s.strongLen)
	j.head = append(j.head, fields[:]...)
	j.state = s.stBlocks
	return running, nil
}

// blocks reads one block per transition and emits its checksums. The final
// block may be short, in which case its checksums cover only the bytes that
// exist.
func (s *sigState) blocks(j *Job) (Result, error) {
	// Accumulate a block.
	block, eof, result := j.fillScratch(int(s.blockLen))
	if result != running {
		return result, nil
	}

	// An empty final read means the basis length was a multiple of the
	// block length (or the basis was empty) and we're done.
	if len(block) == 0 {
		j.state = stateDone
		return running, nil
	}

	// Compute and emit the block's checksums.
	s.weak.Reset()
	s.weak.Update(block)
	s.strong.Reset()
	s.strong.Write(block)
	strong := s.strong.Sum(s.strongSum[:0])
	var weak [4]byte
	binary.BigEndian.PutUint32(weak[:], s.weak.Digest())
	j.head = append(j.head, weak[:]...)
	j.head = append(j.head, strong[:s.strongLen]...)
	j.resetScratch()
	j.stats.SigBlocks++

	// A short block only occurs at EOF, so the job is complete once it has
	// been emitted.
	if eof {
		j.state = stateDone
	}
	return running, nil
}
