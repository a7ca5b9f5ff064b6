package voice

import "math"

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	norm := l2Norm(v)

	// Can't normalize zero vector
	result := make([]float32, len(v))
	if norm == 0 {
		return result
	}

	for i, val := range v {
		result[i] = float32(float64(val) / norm)
	}
	return result
}

// CosineSimilarity returns the cosine of the angle between a and b,
// computed in float64. Vectors of different length, or zero vectors, have
// similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func l2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Mean returns the element-wise mean of vectors, which must share a length.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			sum[i] += float64(v[i])
		}
	}
	mean := make([]float32, dim)
	for i := range sum {
		mean[i] = float32(sum[i] / float64(len(vectors)))
	}
	return mean
}

// RunningAverage folds e into centroid c, where c already averages n samples:
// (c*n + e) / (n+1).
func RunningAverage(c, e []float32, n int) []float32 {
	if n < 1 {
		n = 1
	}
	out := make([]float32, len(c))
	w := float64(n)
	for i := range c {
		var x float64
		if i < len(e) {
			x = float64(e[i])
		}
		out[i] = float32((float64(c[i])*w + x) / (w + 1))
	}
	return out
}
