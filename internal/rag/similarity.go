package rag

import "math"

// epsilon guards the cosine denominator against division by a near-zero
// norm product (zero vectors score 0 rather than NaN).
const epsilon = 1e-12

// Cosine returns the cosine similarity of two embedding vectors. Vectors of
// mismatched length are truncated to the shorter — never an error. The
// result is nominally in [-1, 1] but is not clamped. Pure and symmetric.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + epsilon)
}
