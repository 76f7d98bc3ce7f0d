package similarity

import (
	"math"
	"testing"
)

func almost(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestCosine_SelfIsOne(t *testing.T) {
	vecs := [][]float32{
		{1, 0, 0},
		{0.3, -0.7, 2.1},
		{1e-3, 1e-3},
	}
	for _, v := range vecs {
		if got := Cosine(v, v); !almost(got, 1, 1e-9) {
			t.Fatalf("Cosine(v, v) = %v, want 1", got)
		}
	}
}

func TestCosine_ZeroNormIsZero(t *testing.T) {
	zero := []float32{0, 0, 0}
	v := []float32{1, 2, 3}

	if got := Cosine(v, zero); got != 0 {
		t.Fatalf("Cosine(v, 0) = %v, want 0", got)
	}
	if got := Cosine(zero, v); got != 0 {
		t.Fatalf("Cosine(0, v) = %v, want 0", got)
	}
	if got := Cosine(zero, zero); got != 0 {
		t.Fatalf("Cosine(0, 0) = %v, want 0", got)
	}
}

func TestCosine_Symmetric(t *testing.T) {
	a := []float32{0.5, -1.5, 3, 0.25}
	b := []float32{-2, 0.1, 0.9, 4}

	if ab, ba := Cosine(a, b), Cosine(b, a); !almost(ab, ba, 1e-12) {
		t.Fatalf("Cosine not symmetric: %v vs %v", ab, ba)
	}
}

func TestCosine_Orthogonal(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); !almost(got, 0, 1e-9) {
		t.Fatalf("orthogonal vectors: got %v, want 0", got)
	}
}

func TestCosine_Opposite(t *testing.T) {
	if got := Cosine([]float32{1, 2}, []float32{-1, -2}); !almost(got, -1, 1e-9) {
		t.Fatalf("opposite vectors: got %v, want -1", got)
	}
}

func TestCosine_LengthMismatch(t *testing.T) {
	if got := Cosine([]float32{1, 2, 3}, []float32{1, 2}); got != 0 {
		t.Fatalf("mismatched lengths: got %v, want 0", got)
	}
}

func TestCombine(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name               string
		textSim, imageSim  float64
		hasText, hasImage  bool
		want               float64
	}{
		{"both present", 0.8, 0.6, true, true, 0.3*0.8 + 0.7*0.6},
		{"text only undiluted", 0.8, 0, true, false, 0.8},
		{"image only undiluted", 0, 0.6, false, true, 0.6},
		{"neither is zero", 0.8, 0.6, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(tt.textSim, tt.imageSim, tt.hasText, tt.hasImage, w)
			if !almost(got, tt.want, 1e-12) {
				t.Fatalf("Combine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		sim  float64
		want float64
	}{
		{1, 100},
		{0, 0},
		{0.87654, 87.65},
		{0.87655, 87.66},
		{-0.5, -50},
	}
	for _, tt := range tests {
		if got := Percent(tt.sim); got != tt.want {
			t.Fatalf("Percent(%v) = %v, want %v", tt.sim, got, tt.want)
		}
	}
}

func TestWeights_Validate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}
	if err := (Weights{Text: 1, Image: 0}).Validate(); err != nil {
		t.Fatalf("all-text weights invalid: %v", err)
	}
	if err := (Weights{Text: -0.1, Image: 1.1}).Validate(); err == nil {
		t.Fatal("expected error for negative weight")
	}
	if err := (Weights{Text: 0.5, Image: 0.6}).Validate(); err == nil {
		t.Fatal("expected error for weights not summing to 1")
	}
}
