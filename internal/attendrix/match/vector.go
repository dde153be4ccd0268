package match

// newtonIterations is fixed so that scores are bit-reproducible across
// platforms; do not change it or the initial guess without regenerating
// every stored test fixture.
const newtonIterations = 20

// newtonSqrt computes a square root with a fixed-iteration Newton-Raphson
// loop seeded at value/2, instead of math.Sqrt.  Platform libm results can
// differ in the last ulp; this cannot.
func newtonSqrt(value float64) float64 {
	if value <= 0 {
		return 0
	}
	guess := value / 2
	for i := 0; i < newtonIterations; i++ {
		guess = (guess + value/guess) / 2
	}
	return guess
}

// Cosine returns the cosine similarity dot(a,b)/(|a|*|b|).
//
// Two cases deliberately return 0.0 as a plain score, not an error: vectors
// of different lengths, and vectors with zero norm.  Callers treat 0.0 as
// "no similarity" and move on.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := newtonSqrt(normA) * newtonSqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
