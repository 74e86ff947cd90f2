package rollsum

const (
	// rkMult is the RabinKarp polynomial multiplier. It's odd, so
	// multiplication by it is invertible modulo 2^32 and the hash retains
	// full width.
	rkMult = 0x08104225
	// rkSeed is the initial hash value. A non-zero seed makes the hash of a
	// window depend on the window's length, so zero-filled windows of
	// different sizes hash differently.
	rkSeed = 0xDEADBEEF
	// rkAdjust is the seed correction applied when rotating. Removing the
	// oldest byte must also collapse the seed's multiplier chain by one step,
	// which works out to subtracting seed*(mult-1) alongside the byte.
	rkAdjust = (rkSeed * (rkMult - 1)) & 0xFFFFFFFF
)

// RabinKarp is a polynomial rolling hash: the hash of a window is
// seed*m^n + b[0]*m^(n-1) + ... + b[n-1], computed modulo 2^32 with
// m = rkMult. Rotation uses a cached m^n for the current window size, so
// sliding the window is two multiplies, an add, and a subtract.
type RabinKarp struct {
	// count is the number of bytes currently in the window.
	count uint64
	// hash is the current hash value.
	hash uint32
	// mult is rkMult raised to count, cached for rotation.
	mult uint32
}

// NewRabinKarp creates a new RabinKarp rolling checksum.
func NewRabinKarp() *RabinKarp {
	return &RabinKarp{hash: rkSeed, mult: 1}
}

// Reset implements Rolling.Reset.
func (r *RabinKarp) Reset() {
	r.count = 0
	r.hash = rkSeed
	r.mult = 1
}

// Update implements Rolling.Update.
func (r *RabinKarp) Update(data []byte) {
	for _, b := range data {
		r.hash = r.hash*rkMult + uint32(b)
		r.mult *= rkMult
	}
	r.count += uint64(len(data))
}

// Rotate implements Rolling.Rotate.
func (r *RabinKarp) Rotate(out, in byte) {
	r.hash = r.hash*rkMult + uint32(in) - r.mult*(uint32(out)+rkAdjust)
}

// Digest implements Rolling.Digest.
func (r *RabinKarp) Digest() uint32 {
	return r.hash
}

// RabinKarpSum computes the RabinKarp checksum of data in one shot.
func RabinKarpSum(data []byte) uint32 {
	r := RabinKarp{hash: rkSeed, mult: 1}
	r.Update(data)
	return r.Digest()
}
