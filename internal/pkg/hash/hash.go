package hash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// Hash returns the murmur3 hash of data. It is the default ring hash.
func Hash(data []byte) uint64 {
	return murmur3.Sum64(data)
}

// FastHash returns the xxhash digest of s as fixed-width hex, suitable for
// embedding in cache keys.
func FastHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}
