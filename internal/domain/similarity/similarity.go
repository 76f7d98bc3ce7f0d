// Package similarity holds the pure scoring math: cosine similarity over
// same-modality vectors and the fixed-weight combination of per-modality
// scores into one overall score.
package similarity

import "math"

// Cosine computes dot(a,b)/(|a|*|b|). If either vector has zero norm, or
// the lengths disagree, the result is 0 rather than an error: callers only
// ever compare vectors produced by the same model, and the clamp keeps a
// degenerate vector from poisoning a whole scan.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Combine merges per-modality cosine similarities into one overall score.
// With both modalities present the result is the weighted sum; with exactly
// one present the result is that similarity undiluted; with none it is 0.
func Combine(textSim, imageSim float64, hasText, hasImage bool, w Weights) float64 {
	switch {
	case hasText && hasImage:
		return w.Text*textSim + w.Image*imageSim
	case hasText:
		return textSim
	case hasImage:
		return imageSim
	default:
		return 0
	}
}

// Percent scales a cosine similarity to a percentage rounded to two decimals.
func Percent(sim float64) float64 {
	return math.Round(sim*100*100) / 100
}
