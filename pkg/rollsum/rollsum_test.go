package rollsum

import (
	"math/rand"
	"testing"
)

// testRotationMatchesRecomputation verifies that sliding a window with Rotate
// produces the same digest as recomputing the sum over the shifted window
// from scratch.
func testRotationMatchesRecomputation(t *testing.T, rolling Rolling, fresh func() Rolling) {
	// Create a random data stream.
	random := rand.New(rand.NewSource(151))
	data := make([]byte, 4096)
	random.Read(data)

	// Slide a window across the stream and compare against recomputation at
	// every position.
	const window = 64
	rolling.Reset()
	rolling.Update(data[:window])
	for i := 0; i+window < len(data); i++ {
		recomputed := fresh()
		recomputed.Update(data[i : i+window])
		if rolling.Digest() != recomputed.Digest() {
			t.Fatalf("digest mismatch at offset %d: rolled %08x, recomputed %08x",
				i, rolling.Digest(), recomputed.Digest())
		}
		rolling.Rotate(data[i], data[i+window])
	}
}

func TestClassicRotation(t *testing.T) {
	testRotationMatchesRecomputation(t, NewClassic(), func() Rolling {
		return NewClassic()
	})
}

func TestRabinKarpRotation(t *testing.T) {
	testRotationMatchesRecomputation(t, NewRabinKarp(), func() Rolling {
		return NewRabinKarp()
	})
}

func TestClassicDigestComposition(t *testing.T) {
	// The digest packs s2 in the high half and s1 in the low half. For a
	// single byte b, s1 = s2 = b + 31.
	var r Classic
	r.Update([]byte{0})
	expected := uint32(31)<<16 | 31
	if d := r.Digest(); d != expected {
		t.Errorf("unexpected single-byte digest: got %08x, expected %08x", d, expected)
	}
}

func TestClassicIncrementalUpdate(t *testing.T) {
	// Updating in pieces must be equivalent to updating in one shot.
	data := []byte("block checksums roll forward one byte at a time")
	var whole, pieces Classic
	whole.Update(data)
	pieces.Update(data[:11])
	pieces.Update(data[11:])
	if whole.Digest() != pieces.Digest() {
		t.Error("piecewise update diverged from single update")
	}
}

func TestRabinKarpLengthSensitivity(t *testing.T) {
	// Zero-filled windows of different lengths must hash differently thanks
	// to the seed's multiplier chain.
	a := RabinKarpSum(make([]byte, 16))
	b := RabinKarpSum(make([]byte, 17))
	if a == b {
		t.Error("zero windows of different lengths produced equal hashes")
	}
}

func TestOneShotHelpers(t *testing.T) {
	data := []byte("one-shot convenience")
	var c Classic
	c.Update(data)
	if ClassicSum(data) != c.Digest() {
		t.Error("ClassicSum disagrees with incremental digest")
	}
	r := NewRabinKarp()
	r.Update(data)
	if RabinKarpSum(data) != r.Digest() {
		t.Error("RabinKarpSum disagrees with incremental digest")
	}
}
