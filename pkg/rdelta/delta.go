package rdelta

import (
	"hash"

	"github.com/pkg/errors"

	"github.com/rdelta-io/rdelta/pkg/rollsum"
)

// maxLiteralLength bounds the literal region accumulated between matches.
// When the pending literal grows to this size it is flushed as an
// intermediate literal command and the scan continues. The value is just a
// reasonable amount of data to hold in memory and pass through the output
// buffer at a time; it doesn't affect correctness.
const maxLiteralLength = 1 << 16

// deltaState is the state of a delta-generation job. The job scans the new
// file with a sliding window of one block length, looks each window up in
// the signature's weak sum index, confirms weak hits with the strong hash,
// and emits a command stream of copies (for matched blocks, coalesced when
// adjacent) and literals (for everything else).
type deltaState struct {
	// sig is the indexed signature being matched against. The job holds a
	// non-owning reference and never mutates it.
	sig *Signature
	// blockLen is the signature's block length.
	blockLen int
	// weak is the rolling checksum over the current window.
	weak rollsum.Rolling
	// strong is the strong hash used to confirm weak hits.
	strong hash.Hash
	// strongSum is scratch space for strong sum results.
	strongSum [MaxStrongLength]byte

	// buf accumulates new-file bytes. Its prefix buf[:winStart] is the
	// pending literal region and buf[winStart:] is the current window. Its
	// capacity is fixed at creation.
	buf []byte
	// winStart is the offset of the window within buf.
	winStart int
	// compact indicates that the pending literal region has been staged for
	// emission and the window must be shifted to the front of buf before
	// scanning resumes. The shift is deferred until the staged bytes have
	// drained, since they alias buf.
	compact bool
	// checked indicates that the current window has already been looked up,
	// so a scan resumed after suspension doesn't repeat the search (and its
	// false-match accounting) for an unchanged window.
	checked bool

	// copyStart and copyLen describe the pending copy command being
	// coalesced. copyLen is zero when no copy is pending.
	copyStart, copyLen uint64

	// stFill, stScan, and stEnd are the pre-bound state functions. finish
	// runs at most once and is invoked directly from fill and scan.
	stFill, stScan, stEnd stateFn
}

// NewDeltaJob creates a job that generates a delta from the new-file data
// fed to it, relative to the given signature. The signature must already be
// indexed with BuildHashTable, and must not be mutated while the job is
// live; multiple delta jobs may share one signature.
func NewDeltaJob(sig *Signature) (*Job, error) {
	// Validate the signature.
	if sig == nil {
		return nil, errors.Wrap(ErrParam, "nil signature")
	} else if err := sig.validate(); err != nil {
		return nil, err
	} else if !sig.Indexed() {
		return nil, errors.Wrap(ErrParam, "signature is not indexed")
	}

	// Create the job.
	job := newJob("delta")
	state := &deltaState{
		sig:      sig,
		blockLen: int(sig.BlockLen),
		weak:     sig.Magic.newRollingSum(),
		strong:   sig.Magic.newStrongHash(),
		buf:      make([]byte, 0, int(sig.BlockLen)+maxLiteralLength),
	}
	state.stFill = state.fill
	state.stScan = state.scan
	state.stEnd = state.end
	job.state = state.header
	job.stats.BlockLen = sig.BlockLen

	// Success.
	return job, nil
}

// header emits the delta magic.
func (s *deltaState) header(j *Job) (Result, error) {
	j.head = appendMagic(j.head, DeltaMagic)
	j.state = s.stFill
	return running, nil
}

// fill accumulates a full window's worth of data and computes its weak sum.
// It only runs with an empty buffer (at the start of the stream and after
// each match), so the window always lands at the front of buf.
func (s *deltaState) fill(j *Job) (Result, error) {
	for len(s.buf) < s.blockLen {
		if len(j.b.In) == 0 {
			if j.b.InEOF {
				return s.finish(j)
			}
			return Blocked, nil
		}
		take := s.blockLen - len(s.buf)
		if take > len(j.b.In) {
			take = len(j.b.In)
		}
		s.buf = append(s.buf, j.b.In[:take]...)
		j.b.In = j.b.In[take:]
		j.stats.InBytes += int64(take)
	}
	s.weak.Reset()
	s.weak.Update(s.buf)
	s.checked = false
	j.state = s.stScan
	return running, nil
}

// scan is the inner loop: check the current window against the signature,
// and on a miss slide it forward one byte, growing the pending literal
// region. It stages emissions and yields to the engine whenever output is
// produced, the buffer needs compaction, or input runs dry.
func (s *deltaState) scan(j *Job) (Result, error) {
	// Complete any deferred compaction now that the staged literal has
	// drained.
	if s.compact {
		n := copy(s.buf, s.buf[s.winStart:])
		s.buf = s.buf[:n]
		s.winStart = 0
		s.compact = false
	}

	for {
		// Check the current window for a match, unless it was already
		// checked before a suspension.
		if !s.checked {
			window := s.buf[s.winStart:]
			if weak := s.weak.Digest(); s.sig.hasWeak(weak) {
				if index, ok := s.sig.find(weak, s.strongSumOf(window)); ok {
					s.flushLiteral(j, s.buf[:s.winStart])
					s.pushCopy(j, uint64(index)*uint64(s.blockLen), uint64(len(window)))
					j.stats.Matches++
					s.buf = s.buf[:0]
					s.winStart = 0
					j.state = s.stFill
					return running, nil
				}
				j.stats.FalseMatches++
			}
			s.checked = true
		}

		// The window didn't match, so it has to slide. Suspend if the next
		// byte isn't available yet.
		if len(j.b.In) == 0 {
			if j.b.InEOF {
				return s.finish(j)
			}
			return Blocked, nil
		}

		// If the buffer is full, stage the pending literal region and defer
		// compaction until it drains.
		if len(s.buf) == cap(s.buf) {
			s.flushLiteral(j, s.buf[:s.winStart])
			s.compact = true
			return running, nil
		}

		// Slide the window one byte forward. The displaced byte joins the
		// pending literal region.
		in := j.b.In[0]
		j.b.In = j.b.In[1:]
		j.stats.InBytes++
		out := s.buf[s.winStart]
		s.buf = append(s.buf, in)
		s.winStart++
		s.weak.Rotate(out, in)
		s.checked = false
	}
}

// finish handles end of input: a final short window can still match the
// basis's short trailing block, and everything left over is emitted as a
// final literal. The pending copy flush and the end-of-stream command are
// staged by the end state, after the literal's data has drained, so that
// they follow it on the wire.
func (s *deltaState) finish(j *Job) (Result, error) {
	tail := s.buf[s.winStart:]
	matched := false
	if len(tail) > 0 && len(tail) < s.blockLen {
		// Full-length windows have already been checked during the scan;
		// only a short trailing window gets this extra chance. Strong sums
		// are computed over actual block bytes, so only a short final basis
		// block can confirm here.
		if weak := s.sig.Magic.weakSum(tail); s.sig.hasWeak(weak) {
			if index, ok := s.sig.find(weak, s.strongSumOf(tail)); ok {
				s.flushLiteral(j, s.buf[:s.winStart])
				s.pushCopy(j, uint64(index)*uint64(s.blockLen), uint64(len(tail)))
				j.stats.Matches++
				matched = true
			} else {
				j.stats.FalseMatches++
			}
		}
	}
	if !matched {
		s.flushLiteral(j, s.buf)
	}
	j.state = s.stEnd
	return running, nil
}

// end flushes the last pending copy command and terminates the stream.
func (s *deltaState) end(j *Job) (Result, error) {
	s.flushCopy(j)
	j.head = appendEndCommand(j.head)
	j.state = stateDone
	return running, nil
}

// strongSumOf computes the strong sum of data into the state's scratch
// space.
func (s *deltaState) strongSumOf(data []byte) []byte {
	s.strong.Reset()
	s.strong.Write(data)
	return s.strong.Sum(s.strongSum[:0])
}

// flushLiteral stages a literal command carrying lit, which may alias buf.
// Any pending copy command is flushed first, since it precedes the literal
// in the stream.
func (s *deltaState) flushLiteral(j *Job, lit []byte) {
	if len(lit) == 0 {
		return
	}
	s.flushCopy(j)
	before := len(j.head)
	j.head = appendLiteralCommand(j.head, uint64(len(lit)))
	j.data = lit
	j.stats.LitCmds++
	j.stats.LitBytes += int64(len(lit))
	j.stats.LitCmdBytes += int64(len(j.head) - before)
}

// pushCopy extends the pending copy command when the new match is adjacent
// to it, and otherwise flushes it and starts a new one.
func (s *deltaState) pushCopy(j *Job, start, length uint64) {
	if s.copyLen > 0 && s.copyStart+s.copyLen == start {
		s.copyLen += length
		return
	}
	s.flushCopy(j)
	s.copyStart = start
	s.copyLen = length
}

// flushCopy stages the pending copy command, if any.
func (s *deltaState) flushCopy(j *Job) {
	if s.copyLen == 0 {
		return
	}
	before := len(j.head)
	j.head = appendCopyCommand(j.head, s.copyStart, s.copyLen)
	j.stats.CopyCmds++
	j.stats.CopyBytes += int64(s.copyLen)
	j.stats.CopyCmdBytes += int64(len(j.head) - before)
	if j.logger != nil {
		j.logger.Tracef("copy %d bytes from %d", s.copyLen, s.copyStart)
	}
	s.copyLen = 0
}
