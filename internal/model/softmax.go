package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Softmax converts raw demand scores into a probability distribution
// summing to 1. The max score is subtracted before exponentiation so
// large demand counts cannot overflow.
func Softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := floats.Max(scores)
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Exp(s - max)
	}
	sum := floats.Sum(out)
	floats.Scale(1/sum, out)
	return out
}
