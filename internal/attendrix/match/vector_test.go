package match

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine_Symmetric(t *testing.T) {
	pairs := [][2][]float64{
		{{1, 2, 3}, {4, 5, 6}},
		{{-0.5, 0.25, 0.75}, {0.1, -0.9, 0.3}},
		{{0.001, 0.002}, {100, 200}},
	}
	for _, p := range pairs {
		assert.Equal(t, Cosine(p[0], p[1]), Cosine(p[1], p[0]))
	}
}

func TestCosine_SelfSimilarityIsOne(t *testing.T) {
	vectors := [][]float64{
		{1, 0, 0},
		{0.3, -0.7, 0.2, 0.5},
		{5, 5, 5},
	}
	for _, v := range vectors {
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-6)
	}
}

func TestCosine_OrthogonalIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}))
}

func TestCosine_MismatchedLengthsYieldZero(t *testing.T) {
	// Not an error: a length mismatch scores 0.0 and the candidate just
	// never ranks.
	assert.Equal(t, 0.0, Cosine([]float64{1, 2, 3}, []float64{1, 2}))
	assert.Equal(t, 0.0, Cosine(nil, []float64{1}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestCosine_ZeroNormYieldsZero(t *testing.T) {
	zero := []float64{0, 0, 0}
	assert.Equal(t, 0.0, Cosine(zero, []float64{1, 2, 3}))
	assert.Equal(t, 0.0, Cosine([]float64{1, 2, 3}, zero))
	assert.Equal(t, 0.0, Cosine(zero, zero))
}

func TestCosine_OppositeVectors(t *testing.T) {
	assert.InDelta(t, -1.0, Cosine([]float64{1, 1}, []float64{-1, -1}), 1e-6)
}

func TestNewtonSqrt_MatchesMathSqrtForTypicalNorms(t *testing.T) {
	// Embedding component magnitudes are O(1); squared norms land well
	// inside the range where 20 iterations from value/2 converge.
	for _, v := range []float64{0.0001, 0.5, 1, 2, 9, 100, 512.75} {
		assert.InDelta(t, math.Sqrt(v), newtonSqrt(v), 1e-9*math.Sqrt(v)+1e-12,
			"sqrt(%v)", v)
	}
}

func TestNewtonSqrt_ZeroAndNegative(t *testing.T) {
	assert.Equal(t, 0.0, newtonSqrt(0))
	assert.Equal(t, 0.0, newtonSqrt(-4))
}

func TestNewtonSqrt_Deterministic(t *testing.T) {
	// Same input, bit-identical output, every time.
	first := newtonSqrt(7.3)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, newtonSqrt(7.3))
	}
}
