package queryrt

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/wbrown/janus-query/codec"
)

// Fingerprint renders a short, stable, lexicographically-sortable tag for
// a query value: an xxhash of its Go representation, encoded with the
// L85 codec. Submit's enqueue and completion trace events carry this
// instead of a query's full Go value, which for
// something like a parse-tree argument could be arbitrarily large.
//
// Two fingerprints matching does not prove the underlying queries were
// equal — this is a display aid, never used for cache identity.
func Fingerprint(q any) string {
	sum := xxhash.Sum64String(fmt.Sprintf("%#v", q))
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(sum >> (8 * (7 - i)))
	}
	return codec.EncodeL85(b[:])
}
