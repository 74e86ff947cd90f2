package rdelta

import (
	"bytes"
	"math"
	"math/bits"

	"github.com/pkg/errors"
)

const (
	// DefaultBlockLen is the block length used when none is specified and
	// the basis size is unknown. The 2K default assumes a typical file is
	// about 4MB and should be fine for files up to 32G.
	DefaultBlockLen = 2048
	// DefaultMinStrongLen is the minimum strong sum length recommended when
	// the basis size is unknown. It's conservative enough for very large
	// files, assuming no collision attack with crafted data.
	DefaultMinStrongLen = 12
	// minRecommendedBlockLen and maxRecommendedBlockLen bound the block
	// length recommended by SigArgs. The lower bound keeps per-block
	// overhead sane and the upper bound keeps block buffers reasonably
	// sized.
	minRecommendedBlockLen = 256
	maxRecommendedBlockLen = 1 << 16
)

// StrongLen specifies how many strong sum bytes to retain per block. Positive
// values request that exact length; the two sentinel values request a length
// derived from the signature format and basis size.
type StrongLen int

const (
	// StrongLenMax requests the strong hash's full native length. It gives
	// the best protection against active hash collision attacks.
	StrongLenMax StrongLen = 0
	// StrongLenMin requests the smallest length that is safe against random
	// hash collisions for the basis size and block length.
	StrongLenMin StrongLen = -1
)

// BlockSum holds the checksums of a single basis block.
type BlockSum struct {
	// Weak is the block's rolling checksum.
	Weak uint32
	// Strong holds the block's strong sum. Only the signature's StrongLen
	// leading bytes are meaningful.
	Strong [MaxStrongLength]byte
}

// Signature is an in-memory basis signature: an ordered list of block
// checksums plus a hash index built on demand for delta searches. A
// signature may be shared by multiple delta jobs once indexed, since
// indexing is the only mutation.
type Signature struct {
	// Magic identifies the signature format.
	Magic Magic
	// BlockLen is the nominal block length. The final block may be shorter.
	BlockLen uint32
	// StrongLen is the number of leading strong sum bytes stored per block.
	StrongLen uint32
	// Blocks are the per-block checksums in basis order.
	Blocks []BlockSum

	// buckets is the open-addressed hash index from weak sums to chain
	// heads, sized to a power of two at least twice the block count. A
	// value of -1 marks an empty bucket. It is nil until BuildHashTable
	// runs.
	buckets []int32
	// next chains together blocks sharing a weak sum, in ascending block
	// order. A value of -1 terminates a chain.
	next []int32
	// mask is len(buckets) - 1.
	mask uint32
}

// validate checks the signature's parameter invariants.
func (s *Signature) validate() error {
	if !s.Magic.isSignature() {
		return errors.Wrapf(ErrBadMagic, "%v is not a signature format", s.Magic)
	} else if s.BlockLen == 0 {
		return errors.Wrap(ErrParam, "zero block length")
	} else if s.StrongLen == 0 || s.StrongLen > s.Magic.strongSumLength() {
		return errors.Wrapf(ErrParam, "strong sum length %d out of range", s.StrongLen)
	}
	return nil
}

// Indexed indicates whether or not BuildHashTable has run.
func (s *Signature) Indexed() bool {
	return s.buckets != nil
}

// AppendBlock appends a block checksum to the signature. Appending to an
// indexed signature is an error, because the index covers exactly the blocks
// present when it was built.
func (s *Signature) AppendBlock(weak uint32, strong []byte) error {
	if s.Indexed() {
		return errors.Wrap(ErrParam, "signature is already indexed")
	}
	block := BlockSum{Weak: weak}
	copy(block.Strong[:s.StrongLen], strong)
	s.Blocks = append(s.Blocks, block)
	return nil
}

// BuildHashTable builds the signature's weak sum index. It must be called
// once, after all blocks are present and before any delta job uses the
// signature. Calling it again is a no-op.
func (s *Signature) BuildHashTable() error {
	// Validate parameters before anchoring an index to them.
	if err := s.validate(); err != nil {
		return err
	}

	// Calling again after a successful build is harmless.
	if s.Indexed() {
		return nil
	}

	// Signatures can address at most 2^31 blocks through the int32 chain
	// links, which corresponds to basis sizes far beyond the 8-byte copy
	// command operand's practical use.
	if len(s.Blocks) > math.MaxInt32/2 {
		return errors.Wrap(ErrParam, "signature has too many blocks to index")
	}

	// Size the bucket array to at least twice the block count, rounded up
	// to a power of two, so that probe chains stay short.
	capacity := 16
	for capacity < 2*len(s.Blocks) {
		capacity <<= 1
	}
	buckets := make([]int32, capacity)
	for i := range buckets {
		buckets[i] = -1
	}
	next := make([]int32, len(s.Blocks))
	mask := uint32(capacity - 1)

	// Insert blocks in descending order, prepending to chains, so that each
	// chain ends up in ascending block order and lookups find the lowest
	// matching index first.
	for i := len(s.Blocks) - 1; i >= 0; i-- {
		weak := s.Blocks[i].Weak
		slot := weak & mask
		for {
			if buckets[slot] == -1 {
				next[i] = -1
				buckets[slot] = int32(i)
				break
			} else if s.Blocks[buckets[slot]].Weak == weak {
				next[i] = buckets[slot]
				buckets[slot] = int32(i)
				break
			}
			slot = (slot + 1) & mask
		}
	}

	// Publish the index.
	s.buckets = buckets
	s.next = next
	s.mask = mask

	// Success.
	return nil
}

// hasWeak indicates whether or not any block has the given weak sum. It lets
// the delta search defer the strong sum computation until a weak hit occurs.
func (s *Signature) hasWeak(weak uint32) bool {
	slot := weak & s.mask
	for s.buckets[slot] != -1 {
		if s.Blocks[s.buckets[slot]].Weak == weak {
			return true
		}
		slot = (slot + 1) & s.mask
	}
	return false
}

// find returns the index of the first block whose weak sum equals weak and
// whose stored strong sum prefix equals the leading StrongLen bytes of
// strong. When several blocks match, the lowest index wins.
func (s *Signature) find(weak uint32, strong []byte) (int, bool) {
	slot := weak & s.mask
	for s.buckets[slot] != -1 {
		if s.Blocks[s.buckets[slot]].Weak == weak {
			for i := s.buckets[slot]; i != -1; i = s.next[i] {
				if bytes.Equal(s.Blocks[i].Strong[:s.StrongLen], strong[:s.StrongLen]) {
					return int(i), true
				}
			}
			return 0, false
		}
		slot = (slot + 1) & s.mask
	}
	return 0, false
}

// SigArgs computes recommended signature parameters for a basis of the given
// size (-1 if unknown). A zero magic selects the recommended format, a zero
// block length selects one balancing signature size against delta size for
// the basis, and the StrongLen sentinels select the maximum or minimum safe
// strong sum length. It returns the resolved values, or an error if an
// explicit argument is invalid.
func SigArgs(oldSize int64, magic Magic, blockLen uint32, strongLen StrongLen) (Magic, uint32, uint32, error) {
	// Resolve the format.
	if magic == 0 {
		magic = RKBLAKE2SigMagic
	} else if !magic.isSignature() {
		return 0, 0, 0, errors.Wrapf(ErrBadMagic, "%v is not a signature format", magic)
	}

	// Resolve the block length so that the expected signature size grows
	// with the square root of the basis size.
	if blockLen == 0 {
		if oldSize < 0 {
			blockLen = DefaultBlockLen
		} else {
			const blockOverhead = 4 + DefaultMinStrongLen + 8
			recommended := uint32(math.Sqrt(float64(oldSize) * blockOverhead))
			recommended = (recommended + 15) &^ 15
			if recommended < minRecommendedBlockLen {
				recommended = minRecommendedBlockLen
			} else if recommended > maxRecommendedBlockLen {
				recommended = maxRecommendedBlockLen
			}
			blockLen = recommended
		}
	}

	// Resolve the strong sum length.
	native := magic.strongSumLength()
	var resolved uint32
	switch {
	case strongLen == StrongLenMax:
		resolved = native
	case strongLen == StrongLenMin:
		resolved = minimumStrongLen(oldSize, blockLen)
		if resolved > native {
			resolved = native
		}
	case strongLen > 0 && uint32(strongLen) <= native:
		resolved = uint32(strongLen)
	default:
		return 0, 0, 0, errors.Wrapf(ErrParam, "strong sum length %d out of range for %v", strongLen, magic)
	}

	// Success.
	return magic, blockLen, resolved, nil
}

// minimumStrongLen computes the smallest strong sum length that makes random
// collisions unlikely across all block-against-window comparisons for a
// basis of the given size, floored at DefaultMinStrongLen.
func minimumStrongLen(oldSize int64, blockLen uint32) uint32 {
	length := uint32(DefaultMinStrongLen)
	if oldSize >= 0 {
		blocks := uint64(oldSize) / uint64(blockLen)
		if uint64(oldSize)%uint64(blockLen) != 0 {
			blocks++
		}
		// The number of comparisons is roughly the block count times the
		// number of windows scanned, which is itself about one window per
		// block of new data.
		comparisons := blocks * blocks
		required := uint32((bits.Len64(comparisons) + 7) / 8)
		if required > length {
			length = required
		}
	}
	return length
}
