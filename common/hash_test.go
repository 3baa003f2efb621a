package common

import "testing"

func TestHashMixDeterministic(t *testing.T) {
	a := HashMix(HashMix(HashSeed, 1), 2)
	b := HashMix(HashMix(HashSeed, 1), 2)
	if a != b {
		t.Errorf("identical sequences hashed differently: %x vs %x", a, b)
	}
}

func TestHashMixOrderSensitive(t *testing.T) {
	ab := HashMix(HashMix(HashSeed, 1), 2)
	ba := HashMix(HashMix(HashSeed, 2), 1)
	if ab == ba {
		t.Error("swapping the mix order should change the hash")
	}
}

func TestHashMixZeroRunsAdvance(t *testing.T) {
	one := HashMix(HashSeed, 0)
	two := HashMix(one, 0)
	if one == two {
		t.Error("mixing a zero value should still advance the accumulator")
	}
	if one == HashSeed {
		t.Error("mixing should move off the seed")
	}
}

func TestHashMixBool(t *testing.T) {
	if HashMixBool(HashSeed, true) == HashMixBool(HashSeed, false) {
		t.Error("true and false should hash differently")
	}
}

func TestHashMixFloat(t *testing.T) {
	if HashMixFloat(HashSeed, 1.0) == HashMixFloat(HashSeed, 2.0) {
		t.Error("distinct floats should hash differently")
	}
	// The same bit pattern always hashes the same.
	if HashMixFloat(HashSeed, 0.5) != HashMixFloat(HashSeed, 0.5) {
		t.Error("identical floats hashed differently")
	}
	// Positive and negative zero have distinct bit patterns.
	if HashMixFloat(HashSeed, 0) == HashMixFloat(HashSeed, negZero()) {
		t.Error("signed zeros should hash by bit pattern, not value")
	}
}

func negZero() float32 {
	z := float32(0)
	return -z
}
