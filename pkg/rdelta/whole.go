package rdelta

import (
	"bytes"
	"io"
	"io/ioutil"
)

// SignatureFile generates a signature of the basis data read from old and
// writes it to sig. Parameters follow the SigArgs conventions; pass oldSize
// as -1 when the basis size is unknown. It returns the job's final
// statistics.
func SignatureFile(old io.Reader, sig io.Writer, oldSize int64, magic Magic, blockLen uint32, strongLen StrongLen) (*Statistics, error) {
	magic, blockLen, resolved, err := SigArgs(oldSize, magic, blockLen, strongLen)
	if err != nil {
		return nil, err
	}
	job, err := NewSignatureJob(magic, blockLen, StrongLen(resolved))
	if err != nil {
		return nil, err
	}
	if err := job.Drive(old, sig); err != nil {
		return job.Statistics(), err
	}
	return job.Statistics(), nil
}

// LoadSignatureFile parses a signature stream into memory. The returned
// signature is not yet indexed; call BuildHashTable before generating
// deltas with it.
func LoadSignatureFile(sig io.Reader) (*Signature, error) {
	job := NewLoadSignatureJob()
	if err := job.Drive(sig, ioutil.Discard); err != nil {
		return nil, err
	}
	return job.Signature(), nil
}

// DeltaFile generates a delta between the signature's basis and the
// new-file data read from target, writing the delta stream to delta. The
// signature is indexed on first use if the caller hasn't done so already.
// It returns the job's final statistics.
func DeltaFile(sig *Signature, target io.Reader, delta io.Writer) (*Statistics, error) {
	if sig != nil && !sig.Indexed() {
		if err := sig.BuildHashTable(); err != nil {
			return nil, err
		}
	}
	job, err := NewDeltaJob(sig)
	if err != nil {
		return nil, err
	}
	if err := job.Drive(target, delta); err != nil {
		return job.Statistics(), err
	}
	return job.Statistics(), nil
}

// PatchFile applies the delta stream read from delta to the basis and
// writes the reconstructed file to output. It returns the job's final
// statistics.
func PatchFile(basis io.ReaderAt, delta io.Reader, output io.Writer) (*Statistics, error) {
	job, err := NewPatchJob(basis)
	if err != nil {
		return nil, err
	}
	if err := job.Drive(delta, output); err != nil {
		return job.Statistics(), err
	}
	return job.Statistics(), nil
}

// SignatureBytes generates an in-memory, indexed signature of a basis held
// in a byte slice, using recommended parameters for its size unless
// overridden.
func SignatureBytes(basis []byte, magic Magic, blockLen uint32, strongLen StrongLen) (*Signature, error) {
	var encoded bytes.Buffer
	if _, err := SignatureFile(bytes.NewReader(basis), &encoded, int64(len(basis)), magic, blockLen, strongLen); err != nil {
		return nil, err
	}
	sig, err := LoadSignatureFile(&encoded)
	if err != nil {
		return nil, err
	}
	if err := sig.BuildHashTable(); err != nil {
		return nil, err
	}
	return sig, nil
}

// DeltaBytes generates a delta between an indexed signature and a new file
// held in a byte slice.
func DeltaBytes(sig *Signature, target []byte) ([]byte, error) {
	var delta bytes.Buffer
	if _, err := DeltaFile(sig, bytes.NewReader(target), &delta); err != nil {
		return nil, err
	}
	return delta.Bytes(), nil
}

// PatchBytes applies a delta to a basis, both held in byte slices, and
// returns the reconstructed file.
func PatchBytes(basis, delta []byte) ([]byte, error) {
	var output bytes.Buffer
	if _, err := PatchFile(bytes.NewReader(basis), bytes.NewReader(delta), &output); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}
