package montecarlo

// DeriveSeed maps a base seed and a global iteration index to the seed
// of that iteration's run-local generator. The splitmix64 finalizer
// spreads adjacent indices across the whole seed space while staying
// fully deterministic, which is what common-random-number evaluation
// relies on.
func DeriveSeed(base int64, iteration int) int64 {
	z := uint64(base) + uint64(iteration+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	return int64(z)
}
