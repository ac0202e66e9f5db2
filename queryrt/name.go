package queryrt

import "encoding/binary"

// fxSeed and fxK match the constants of the FxHash algorithm used by
// rustc: a rotate-xor-multiply hash tuned for short, fixed-size keys like
// type names rather than for cryptographic strength.
const (
	fxSeed uint64 = 0
	fxK    uint64 = 0x517cc1b727220a95
)

func rotl64(x uint64, n uint) uint64 {
	return x<<n | x>>(64-n)
}

// fxHash consumes data in 8-byte, then 4-byte, then 2-byte, then 1-byte
// chunks. The main 8-byte chunks are always read little-endian; the tail
// chunks (fewer than 8 remaining bytes) are read in the host's native byte
// order. Both choices are internal implementation details: nothing outside
// one build ever needs fxHash to agree with another build's fxHash of the
// same bytes, only with itself.
func fxHash(data []byte) uint64 {
	hash := fxSeed

	for len(data) >= 8 {
		word := binary.LittleEndian.Uint64(data[:8])
		hash = rotl64(hash, 5) ^ word
		hash *= fxK
		data = data[8:]
	}
	if len(data) >= 4 {
		word := uint64(binary.NativeEndian.Uint32(data[:4]))
		hash = rotl64(hash, 5) ^ word
		hash *= fxK
		data = data[4:]
	}
	if len(data) >= 2 {
		word := uint64(binary.NativeEndian.Uint16(data[:2]))
		hash = rotl64(hash, 5) ^ word
		hash *= fxK
		data = data[2:]
	}
	if len(data) >= 1 {
		hash = rotl64(hash, 5) ^ uint64(data[0])
		hash *= fxK
	}

	return hash
}

// Name identifies a query kind: a static string plus its precomputed
// FxHash. Equality and hashing for scheduler bookkeeping use only the
// hash — the string is carried for diagnostics and trace output only, and
// two Names are never compared by string in any hot path.
type Name struct {
	str  string
	hash uint64
}

// NewName computes a Name from a static label. Query kinds are expected to
// call this once, typically to initialize a package-level value, e.g.:
//
//	var lexFileName = queryrt.NewName("frontend.LexFile")
func NewName(label string) Name {
	return Name{str: label, hash: fxHash([]byte(label))}
}

// String returns the label the Name was constructed from.
func (n Name) String() string {
	return n.str
}

// Hash returns the Name's precomputed 64-bit hash. Two Names with equal
// hashes are considered the same Name by the scheduler, collisions
// notwithstanding (see the Scheduler's debug collision check).
func (n Name) Hash() uint64 {
	return n.hash
}
