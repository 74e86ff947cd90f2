package rdelta

import (
	"fmt"
	"strings"
	"time"
)

// Statistics records performance counters for a job. A job updates its
// statistics in place as it runs; they can be read at any point between
// Iterate calls and are final once the job completes or fails.
type Statistics struct {
	// Op is the human-readable name of the operation, e.g. "delta".
	Op string
	// LitCmds is the number of literal commands emitted or consumed.
	LitCmds int64
	// LitBytes is the number of literal data bytes.
	LitBytes int64
	// LitCmdBytes is the number of bytes used by literal command headers.
	LitCmdBytes int64
	// CopyCmds is the number of copy commands emitted or consumed.
	CopyCmds int64
	// CopyBytes is the number of bytes covered by copy commands.
	CopyBytes int64
	// CopyCmdBytes is the number of bytes used by copy command headers.
	CopyCmdBytes int64
	// SigBlocks is the number of blocks described by the signature.
	SigBlocks int64
	// Matches is the number of block matches found during delta search.
	// Adjacent matches coalesced into a single copy command each count
	// individually.
	Matches int64
	// FalseMatches is the number of weak checksum hits whose strong sums
	// didn't confirm during delta search.
	FalseMatches int64
	// BlockLen is the signature block length in use.
	BlockLen uint32
	// InBytes is the total number of bytes consumed from the input buffers.
	InBytes int64
	// OutBytes is the total number of bytes emitted to the output buffers.
	OutBytes int64
	// Start is the time at which the job was created.
	Start time.Time
	// End is the time at which the job completed or failed. It is zero while
	// the job is still running.
	End time.Time
}

// String renders the statistics as a single human-readable line.
func (s *Statistics) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s statistics:", s.Op)
	if s.LitCmds > 0 {
		fmt.Fprintf(&b, " literal[%d cmds, %d bytes, %d cmdbytes]",
			s.LitCmds, s.LitBytes, s.LitCmdBytes)
	}
	if s.CopyCmds > 0 {
		fmt.Fprintf(&b, " copy[%d cmds, %d bytes, %d cmdbytes, %d matches, %d false]",
			s.CopyCmds, s.CopyBytes, s.CopyCmdBytes, s.Matches, s.FalseMatches)
	}
	if s.SigBlocks > 0 {
		fmt.Fprintf(&b, " signature[%d blocks, %d bytes each]",
			s.SigBlocks, s.BlockLen)
	}
	fmt.Fprintf(&b, " in %d bytes, out %d bytes", s.InBytes, s.OutBytes)
	if !s.End.IsZero() {
		fmt.Fprintf(&b, " in %v", s.End.Sub(s.Start).Round(time.Millisecond))
	}
	return b.String()
}
