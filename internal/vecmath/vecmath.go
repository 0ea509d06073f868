// Package vecmath holds the small amount of vector arithmetic the ranking
// engine needs. All embeddings are expected to be unit-norm float32 vectors.
package vecmath

import "math"

// L2NormalizeInPlace normalizes vec to unit L2 norm.
// If vec is empty or all zeros, it is left unchanged.
func L2NormalizeInPlace(vec []float32) {
	if len(vec) == 0 {
		return
	}
	var sumSq float64
	for _, v := range vec {
		f := float64(v)
		sumSq += f * f
	}
	if sumSq <= 0 {
		return
	}
	invNorm := float32(1.0 / math.Sqrt(sumSq))
	for i := range vec {
		vec[i] *= invNorm
	}
}

// Norm returns the L2 norm of vec.
func Norm(vec []float32) float64 {
	var sumSq float64
	for _, v := range vec {
		f := float64(v)
		sumSq += f * f
	}
	return math.Sqrt(sumSq)
}

// Dot returns the dot product of a and b. For unit vectors this is the
// cosine similarity. Returns 0 on dimension mismatch.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// MeanUnit averages vectors elementwise and L2-normalizes the result.
// Returns nil if vectors is empty or dimensions mismatch.
func MeanUnit(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil
	}
	sum := make([]float32, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil
		}
		for i := 0; i < dim; i++ {
			sum[i] += v[i]
		}
	}
	inv := float32(1.0) / float32(len(vectors))
	for i := 0; i < dim; i++ {
		sum[i] *= inv
	}
	L2NormalizeInPlace(sum)
	return sum
}
