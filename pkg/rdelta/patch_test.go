package rdelta

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
)

// buildTestDelta produces a delta with both copy and literal commands for
// patch tests.
func buildTestDelta(t *testing.T, base, target []byte, blockLen uint32) []byte {
	t.Helper()
	sig, err := SignatureBytes(base, RKBLAKE2SigMagic, blockLen, StrongLenMax)
	if err != nil {
		t.Fatal("unable to generate signature:", err)
	}
	delta, err := DeltaBytes(sig, target)
	if err != nil {
		t.Fatal("unable to generate delta:", err)
	}
	return delta
}

func TestPatchTruncatedDelta(t *testing.T) {
	base := generateTestData(16*1024, 41, 0)
	target := generateTestData(16*1024, 41, 2)
	delta := buildTestDelta(t, base, target, 1024)

	// Dropping the end command (and anything else) must be reported as a
	// truncation.
	truncated := delta[:len(delta)-1]
	if _, err := PatchBytes(base, truncated); !errors.Is(err, ErrInputEnded) {
		t.Error("truncated delta accepted:", err)
	}
}

func TestPatchUnknownOpcode(t *testing.T) {
	// A reserved opcode is a corruption error.
	delta := appendMagic(nil, DeltaMagic)
	delta = append(delta, 0xFF)
	if _, err := PatchBytes(nil, delta); !errors.Is(err, ErrCorrupt) {
		t.Error("reserved opcode accepted:", err)
	}
}

func TestPatchSignatureOpcodeInDelta(t *testing.T) {
	// Signature entry opcodes are invalid inside delta streams.
	delta := appendMagic(nil, DeltaMagic)
	delta = append(delta, 0x60)
	if _, err := PatchBytes(nil, delta); !errors.Is(err, ErrCorrupt) {
		t.Error("signature opcode accepted in delta:", err)
	}
}

func TestPatchZeroLengthCopy(t *testing.T) {
	// A zero-length copy is an unbelievable value.
	delta := appendMagic(nil, DeltaMagic)
	delta = append(delta, opCopy11, 0x00, 0x00)
	if _, err := PatchBytes(nil, delta); !errors.Is(err, ErrCorrupt) {
		t.Error("zero-length copy accepted:", err)
	}
}

func TestPatchBadMagic(t *testing.T) {
	// A signature stream is not a delta.
	var sig bytes.Buffer
	if _, err := SignatureFile(bytes.NewReader(nil), &sig, 0, RKBLAKE2SigMagic, 1024, StrongLenMax); err != nil {
		t.Fatal("unable to generate signature:", err)
	}
	if _, err := PatchBytes(nil, sig.Bytes()); !errors.Is(err, ErrBadMagic) {
		t.Error("signature stream accepted as delta:", err)
	}
}

// shortReadBasis wraps a basis and serves at most limit bytes per ReadAt
// call, exercising the patch job's short-read handling.
type shortReadBasis struct {
	basis io.ReaderAt
	limit int
}

func (b *shortReadBasis) ReadAt(p []byte, off int64) (int, error) {
	if len(p) > b.limit {
		p = p[:b.limit]
	}
	return b.basis.ReadAt(p, off)
}

func TestPatchShortBasisReads(t *testing.T) {
	base := generateTestData(64*1024, 43, 0)
	target := generateTestData(64*1024, 43, 1)
	delta := buildTestDelta(t, base, target, 1024)

	// Apply the delta through a basis that never returns more than seven
	// bytes at a time.
	var output bytes.Buffer
	basis := &shortReadBasis{basis: bytes.NewReader(base), limit: 7}
	if _, err := PatchFile(basis, bytes.NewReader(delta), &output); err != nil {
		t.Fatal("unable to patch through short-reading basis:", err)
	}
	if !bytes.Equal(output.Bytes(), target) {
		t.Error("patched data did not match expected")
	}
}

// emptyReadBasis returns no data for any read, which the patch job must
// treat as an error rather than spinning.
type emptyReadBasis struct{}

func (emptyReadBasis) ReadAt(p []byte, off int64) (int, error) {
	return 0, nil
}

func TestPatchZeroLengthBasisRead(t *testing.T) {
	delta := appendMagic(nil, DeltaMagic)
	delta = appendCopyCommand(delta, 0, 16)
	delta = appendEndCommand(delta)
	if _, err := PatchBytes(nil, delta); err == nil {
		t.Error("copy against empty basis succeeded")
	}
	var output bytes.Buffer
	if _, err := PatchFile(emptyReadBasis{}, bytes.NewReader(delta), &output); err == nil {
		t.Error("zero-length basis read not treated as an error")
	}
}

func TestPatchOutOfRangeCopy(t *testing.T) {
	// The patch job doesn't bounds check; the basis reader's own error is
	// propagated.
	base := generateTestData(1024, 47, 0)
	delta := appendMagic(nil, DeltaMagic)
	delta = appendCopyCommand(delta, 4096, 64)
	delta = appendEndCommand(delta)
	if _, err := PatchBytes(base, delta); err == nil {
		t.Error("out-of-range copy succeeded")
	}
}

// positionBasis synthesizes basis bytes from their position, allowing copy
// commands with very large offsets to be exercised without materializing a
// matching basis.
type positionBasis struct{}

func (positionBasis) ReadAt(p []byte, off int64) (int, error) {
	for i := range p {
		p[i] = byte((off + int64(i)) * 31)
	}
	return len(p), nil
}

func TestPatchHugeCopyOffset(t *testing.T) {
	// A copy beyond 4 GiB requires 8-byte operands end to end.
	const off = int64(5) << 30
	delta := appendMagic(nil, DeltaMagic)
	delta = appendCopyCommand(delta, uint64(off), 16)
	delta = appendEndCommand(delta)

	var output bytes.Buffer
	if _, err := PatchFile(positionBasis{}, bytes.NewReader(delta), &output); err != nil {
		t.Fatal("unable to apply huge-offset copy:", err)
	}
	expected := make([]byte, 16)
	positionBasis{}.ReadAt(expected, off)
	if !bytes.Equal(output.Bytes(), expected) {
		t.Error("huge-offset copy produced wrong data")
	}
}

func TestPatchStatisticsBalance(t *testing.T) {
	// The sum of literal and copy bytes must equal the reconstructed
	// length.
	base := generateTestData(128*1024, 53, 0)
	target := generateTestData(128*1024, 53, 4)
	delta := buildTestDelta(t, base, target, 2048)

	var output bytes.Buffer
	stats, err := PatchFile(bytes.NewReader(base), bytes.NewReader(delta), &output)
	if err != nil {
		t.Fatal("unable to patch:", err)
	}
	if stats.LitBytes+stats.CopyBytes != int64(output.Len()) {
		t.Errorf("literal (%d) plus copy (%d) bytes don't cover the %d-byte output",
			stats.LitBytes, stats.CopyBytes, output.Len())
	}
	if !bytes.Equal(output.Bytes(), target) {
		t.Error("patched data did not match expected")
	}
}
