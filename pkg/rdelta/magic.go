package rdelta

import (
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/md4"

	"github.com/rdelta-io/rdelta/pkg/rollsum"
)

// Magic is the four-byte big-endian number at the start of every delta or
// signature stream. For signatures it also selects the rolling checksum
// variant and the strong hash primitive used by the stream.
type Magic uint32

const (
	// DeltaMagic identifies a delta stream.
	DeltaMagic Magic = 0x72730236
	// MD4SigMagic identifies a signature stream using the classic rolling
	// checksum and MD4 strong sums. It's retained for compatibility with old
	// streams, but MD4 is not collision resistant, so it should not be used
	// on files containing untrusted data.
	MD4SigMagic Magic = 0x72730136
	// BLAKE2SigMagic identifies a signature stream using the classic rolling
	// checksum and BLAKE2b strong sums.
	BLAKE2SigMagic Magic = 0x72730137
	// RKMD4SigMagic identifies a signature stream using the RabinKarp rolling
	// checksum and MD4 strong sums. The MD4 caveats apply here as well.
	RKMD4SigMagic Magic = 0x72730146
	// RKBLAKE2SigMagic identifies a signature stream using the RabinKarp
	// rolling checksum and BLAKE2b strong sums. It is the recommended
	// default.
	RKBLAKE2SigMagic Magic = 0x72730147
)

const (
	// MD4SumLength is the native length of an MD4 strong sum.
	MD4SumLength = 16
	// BLAKE2SumLength is the native length of a BLAKE2b strong sum.
	BLAKE2SumLength = 32
	// MaxStrongLength is the largest native strong sum length across all
	// signature formats.
	MaxStrongLength = 32
)

// isSignature indicates whether or not the magic identifies a signature
// stream format.
func (m Magic) isSignature() bool {
	switch m {
	case MD4SigMagic, BLAKE2SigMagic, RKMD4SigMagic, RKBLAKE2SigMagic:
		return true
	default:
		return false
	}
}

// usesRabinKarp indicates whether or not the signature format uses the
// RabinKarp rolling checksum rather than the classic one.
func (m Magic) usesRabinKarp() bool {
	return m == RKMD4SigMagic || m == RKBLAKE2SigMagic
}

// usesBLAKE2 indicates whether or not the signature format uses BLAKE2b
// strong sums rather than MD4.
func (m Magic) usesBLAKE2() bool {
	return m == BLAKE2SigMagic || m == RKBLAKE2SigMagic
}

// newRollingSum creates the rolling checksum for the signature format.
func (m Magic) newRollingSum() rollsum.Rolling {
	if m.usesRabinKarp() {
		return rollsum.NewRabinKarp()
	}
	return rollsum.NewClassic()
}

// weakSum computes the format's rolling checksum of data in one shot.
func (m Magic) weakSum(data []byte) uint32 {
	if m.usesRabinKarp() {
		return rollsum.RabinKarpSum(data)
	}
	return rollsum.ClassicSum(data)
}

// newStrongHash creates the strong hash for the signature format.
func (m Magic) newStrongHash() hash.Hash {
	if m.usesBLAKE2() {
		digest, err := blake2b.New256(nil)
		if err != nil {
			panic("unkeyed BLAKE2b construction failed")
		}
		return digest
	}
	return md4.New()
}

// strongSumLength returns the native strong sum length for the signature
// format.
func (m Magic) strongSumLength() uint32 {
	if m.usesBLAKE2() {
		return BLAKE2SumLength
	}
	return MD4SumLength
}

// String provides a human-readable representation of the magic number.
func (m Magic) String() string {
	switch m {
	case DeltaMagic:
		return "delta"
	case MD4SigMagic:
		return "md4 signature"
	case BLAKE2SigMagic:
		return "blake2 signature"
	case RKMD4SigMagic:
		return "rabinkarp md4 signature"
	case RKBLAKE2SigMagic:
		return "rabinkarp blake2 signature"
	default:
		return fmt.Sprintf("unknown (%#08x)", uint32(m))
	}
}
