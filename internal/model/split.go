package model

import "math/rand"

// split partitions [0, n) into train and test index sets using a
// seeded shuffle, so the same data and seed always produce the same
// holdout.
func split(n int, testFraction float64, seed int64) (train, test []int) {
	if testFraction < 0 {
		testFraction = 0
	}
	if testFraction > 0.5 {
		testFraction = 0.5
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(float64(n) * testFraction)
	// Keep at least one training sample.
	if nTest >= n {
		nTest = n - 1
	}
	return perm[nTest:], perm[:nTest]
}
