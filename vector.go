package pathfinder

import "math"

// Dot computes the inner product of two vectors.
// For unit-norm vectors this equals their cosine similarity.
//
// The result is clamped to [-1, 1] to absorb floating point drift, so callers
// can rely on scores staying inside the cosine range.
//
// Time complexity: O(n) where n is the vector dimension
func Dot(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}

	// Clamp to [-1, 1] to handle floating point precision errors
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}

	return dot
}

// Norm computes the L2 norm (Euclidean length) of a vector.
//
// Formula: sqrt(sum(v[i]^2))
//
// Time complexity: O(n) where n is the vector dimension
func Norm(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return float32(math.Sqrt(float64(sum)))
}

// Normalize returns a new vector with the same direction as v but unit length.
// The original vector is not modified.
//
// Special case: a zero vector is returned unchanged to avoid division by zero
// and NaN values.
//
// Time complexity: O(n) where n is the vector dimension
func Normalize(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	norm := float32(math.Sqrt(float64(sum)))

	result := make([]float32, len(v))
	if norm == 0 {
		copy(result, v)
		return result
	}

	scale := 1.0 / norm
	for i := range v {
		result[i] = v[i] * scale
	}
	return result
}

// NormalizeInPlace normalizes the vector to unit length in-place.
// More memory-efficient than Normalize when the original values are not needed.
//
// Special case: a zero vector remains unchanged.
//
// Time complexity: O(n) where n is the vector dimension
func NormalizeInPlace(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	norm := float32(math.Sqrt(float64(sum)))

	if norm == 0 {
		return
	}

	scale := 1.0 / norm
	for i := range v {
		v[i] *= scale
	}
}
