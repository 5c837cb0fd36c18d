package embedding

import "testing"

func TestNormalizeProducesUnitVector(t *testing.T) {
	vec := normalize([]float32{3, 4})
	const tolerance = 1e-5

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if diff := sumSquares - 1.0; diff > tolerance || diff < -tolerance {
		t.Fatalf("expected unit length, got sum of squares %f", sumSquares)
	}
}

func TestNormalizeLeavesZeroVectorUnchanged(t *testing.T) {
	vec := normalize([]float32{0, 0, 0})
	for _, v := range vec {
		if v != 0 {
			t.Fatalf("expected zero vector to stay zero, got %v", vec)
		}
	}
}
