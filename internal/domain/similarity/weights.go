package similarity

import "fmt"

// Default modality weights: image evidence dominates text.
const (
	DefaultTextWeight  = 0.3
	DefaultImageWeight = 0.7
)

const weightSumTolerance = 1e-9

// Weights is the fixed per-request weighting of the two modalities.
type Weights struct {
	Text  float64
	Image float64
}

// DefaultWeights returns the standard 0.3/0.7 weighting.
func DefaultWeights() Weights {
	return Weights{Text: DefaultTextWeight, Image: DefaultImageWeight}
}

// Validate checks that both weights are non-negative and sum to 1.
func (w Weights) Validate() error {
	if w.Text < 0 || w.Image < 0 {
		return fmt.Errorf("weights must be non-negative, got text=%g image=%g", w.Text, w.Image)
	}
	if diff := w.Text + w.Image - 1; diff > weightSumTolerance || diff < -weightSumTolerance {
		return fmt.Errorf("weights must sum to 1, got %g", w.Text+w.Image)
	}
	return nil
}
