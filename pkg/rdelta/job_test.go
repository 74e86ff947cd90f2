package rdelta

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestIterateNilBuffers(t *testing.T) {
	job, err := NewSignatureJob(0, 0, StrongLenMax)
	if err != nil {
		t.Fatal("unable to create job:", err)
	}
	if _, err := job.Iterate(nil); !errors.Is(err, ErrParam) {
		t.Error("nil buffers accepted:", err)
	}
}

func TestErrorLatching(t *testing.T) {
	// Feed a patch job a bogus magic and verify that the failure repeats on
	// subsequent iterations.
	job, err := NewPatchJob(bytes.NewReader(nil))
	if err != nil {
		t.Fatal("unable to create job:", err)
	}
	buffers := &Buffers{
		In:    []byte{0xDE, 0xAD, 0xBE, 0xEF},
		InEOF: true,
		Out:   make([]byte, 64),
	}
	_, first := job.Iterate(buffers)
	if !errors.Is(first, ErrBadMagic) {
		t.Fatal("bogus magic accepted:", first)
	}
	if _, second := job.Iterate(&Buffers{InEOF: true}); second != first {
		t.Error("failed job didn't repeat its terminal error")
	}
}

func TestDoneIsIdempotent(t *testing.T) {
	// A completed job keeps reporting Done.
	job, err := NewSignatureJob(RKBLAKE2SigMagic, 1024, StrongLenMax)
	if err != nil {
		t.Fatal("unable to create job:", err)
	}
	buffers := &Buffers{InEOF: true, Out: make([]byte, 64)}
	if result, err := job.Iterate(buffers); err != nil {
		t.Fatal("unable to iterate:", err)
	} else if result != Done {
		t.Fatal("empty signature job didn't complete:", result)
	}
	if result, err := job.Iterate(&Buffers{InEOF: true}); err != nil || result != Done {
		t.Error("completed job didn't remain done")
	}
}

func TestOutputSpaceSuspension(t *testing.T) {
	// With no output space, a job that needs to emit must report Blocked
	// without consuming anything it can't buffer, and must finish once
	// space appears.
	job, err := NewSignatureJob(RKBLAKE2SigMagic, 4, StrongLenMax)
	if err != nil {
		t.Fatal("unable to create job:", err)
	}
	buffers := &Buffers{
		In:    []byte("0123"),
		InEOF: true,
	}
	if result, err := job.Iterate(buffers); err != nil {
		t.Fatal("unable to iterate:", err)
	} else if result != Blocked {
		t.Fatal("job didn't block on zero output space:", result)
	}

	// Drain the output one byte at a time.
	var output []byte
	outbuf := make([]byte, 1)
	for {
		buffers.Out = outbuf
		result, err := job.Iterate(buffers)
		if err != nil {
			t.Fatal("unable to iterate:", err)
		}
		output = append(output, outbuf[:len(outbuf)-len(buffers.Out)]...)
		if result == Done {
			break
		}
	}

	// The output must match a one-shot run.
	var expected bytes.Buffer
	if _, err := SignatureFile(bytes.NewReader([]byte("0123")), &expected, 4, RKBLAKE2SigMagic, 4, StrongLenMax); err != nil {
		t.Fatal("unable to generate reference signature:", err)
	}
	if !bytes.Equal(output, expected.Bytes()) {
		t.Error("byte-at-a-time output differs from one-shot output")
	}
}

func TestSignatureAccessor(t *testing.T) {
	// Job.Signature is nil for non-loading jobs and for loading jobs that
	// haven't completed.
	sigJob, err := NewSignatureJob(0, 0, StrongLenMax)
	if err != nil {
		t.Fatal("unable to create job:", err)
	}
	if sigJob.Signature() != nil {
		t.Error("signature generation job exposed a signature")
	}

	loadJob := NewLoadSignatureJob()
	if loadJob.Signature() != nil {
		t.Error("incomplete loading job exposed a signature")
	}

	var encoded bytes.Buffer
	if _, err := SignatureFile(bytes.NewReader([]byte("some basis data")), &encoded, 15, 0, 4, StrongLenMax); err != nil {
		t.Fatal("unable to generate signature:", err)
	}
	buffers := &Buffers{In: encoded.Bytes(), InEOF: true}
	if result, err := loadJob.Iterate(buffers); err != nil {
		t.Fatal("unable to load signature:", err)
	} else if result != Done {
		t.Fatal("loading job didn't complete:", result)
	}
	if sig := loadJob.Signature(); sig == nil || len(sig.Blocks) != 4 {
		t.Error("loaded signature missing or wrong size")
	}
}

func TestStatisticsInOutAccounting(t *testing.T) {
	// InBytes and OutBytes must equal the stream lengths on both sides.
	base := generateTestData(64*1024, 59, 0)
	target := generateTestData(64*1024, 59, 2)
	sig, err := SignatureBytes(base, RKBLAKE2SigMagic, 1024, StrongLenMax)
	if err != nil {
		t.Fatal("unable to generate signature:", err)
	}
	job, err := NewDeltaJob(sig)
	if err != nil {
		t.Fatal("unable to create delta job:", err)
	}
	var delta bytes.Buffer
	if err := job.Drive(bytes.NewReader(target), &delta); err != nil {
		t.Fatal("unable to drive delta job:", err)
	}
	stats := job.Statistics()
	if stats.InBytes != int64(len(target)) {
		t.Errorf("job consumed %d bytes, input had %d", stats.InBytes, len(target))
	}
	if stats.OutBytes != int64(delta.Len()) {
		t.Errorf("job reported %d output bytes, stream has %d", stats.OutBytes, delta.Len())
	}
	if stats.End.IsZero() || stats.End.Before(stats.Start) {
		t.Error("job timestamps not recorded sensibly")
	}
}
