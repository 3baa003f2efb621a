package common

import (
	"math"
	"math/bits"
)

// HashSeed is the starting value for incremental state hashing. It is an
// arbitrary large odd constant (the FNV-1a 64-bit offset basis) so empty
// states do not hash to zero.
const HashSeed uint64 = 0xcbf29ce484222325

// hashPrime multiplies into the accumulator on every mix so that runs of
// zero values still advance the hash.
const hashPrime uint64 = 0x100000001b3

// HashMix folds one 64-bit value into an accumulated hash. The rotate makes
// the mix order-sensitive: HashMix(HashMix(h, a), b) differs from
// HashMix(HashMix(h, b), a) for a != b.
//
// Parameters:
//   - h: the accumulated hash so far (start from HashSeed)
//   - v: the value to fold in
//
// Returns:
//   - uint64: the updated accumulator
func HashMix(h, v uint64) uint64 {
	h = bits.RotateLeft64(h, 13) ^ v
	return h * hashPrime
}

// HashMixBool folds a boolean into an accumulated hash.
//
// Parameters:
//   - h: the accumulated hash so far
//   - b: the boolean to fold in
//
// Returns:
//   - uint64: the updated accumulator
func HashMixBool(h uint64, b bool) uint64 {
	if b {
		return HashMix(h, 1)
	}
	return HashMix(h, 0)
}

// HashMixFloat folds a float32 into an accumulated hash by its bit pattern.
//
// Parameters:
//   - h: the accumulated hash so far
//   - f: the float to fold in
//
// Returns:
//   - uint64: the updated accumulator
func HashMixFloat(h uint64, f float32) uint64 {
	return HashMix(h, uint64(math.Float32bits(f)))
}
