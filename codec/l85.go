// Package codec implements L85, a lexicographically-sortable Base85
// variant: encoding preserves byte-order comparisons, so encoded query
// fingerprints sort the same way their raw bytes would.
package codec

// L85Alphabet is the exact alphabet from the C implementation this package
// was ported from, sorted in ASCII order so that encoding preserves
// byte-order comparisons.
const L85Alphabet = "!$%&()+,-./" +
	"0123456789:;<=>@" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ[]_`" +
	"abcdefghijklmnopqrstuvwxyz{}"

// EncodeL85 encodes bytes to L85 format.
func EncodeL85(src []byte) string {
	if len(src) == 0 {
		return ""
	}

	result := make([]byte, 0, len(src)*5/4+5)

	// Process full 4-byte groups
	for i := 0; i+4 <= len(src); i += 4 {
		// Get 4 bytes as uint32 (big endian)
		v := uint32(src[i])<<24 | uint32(src[i+1])<<16 |
			uint32(src[i+2])<<8 | uint32(src[i+3])

		// Convert to 5 base85 digits
		chars := [5]byte{}
		for j := 4; j >= 0; j-- {
			chars[j] = L85Alphabet[v%85]
			v /= 85
		}
		result = append(result, chars[:]...)
	}

	// Handle remainder bytes
	remainder := len(src) % 4
	if remainder > 0 {
		// Pad with zeros
		padded := [4]byte{}
		copy(padded[:], src[len(src)-remainder:])

		v := uint32(padded[0])<<24 | uint32(padded[1])<<16 |
			uint32(padded[2])<<8 | uint32(padded[3])

		// Convert to base85
		chars := [5]byte{}
		for j := 4; j >= 0; j-- {
			chars[j] = L85Alphabet[v%85]
			v /= 85
		}

		// Append only remainder+1 characters (matching C implementation)
		result = append(result, chars[:remainder+1]...)
	}

	return string(result)
}
