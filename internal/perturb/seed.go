package perturb

import (
	"fmt"
	"hash/crc64"
)

var seedTable = crc64.MakeTable(crc64.ECMA)

// DeriveSeed maps (base seed, segment index, perturbation name) to a stable
// per-task seed via a checksum of their concatenation. Identical inputs always
// produce the identical seed and changing any one input changes it, which is
// what lets serial and fanned-out runs agree without any shared RNG state.
func DeriveSeed(baseSeed int64, segmentIndex int, name string) int64 {
	key := fmt.Sprintf("%d|%d|%s", baseSeed, segmentIndex, name)
	return int64(crc64.Checksum([]byte(key), seedTable))
}
