package testkit

import (
	"math"
	"testing"
)

func TestTissueGenerator_Basic(t *testing.T) {
	gen := NewTissueGenerator(DefaultTissueConfig())
	matrix, coords, err := gen.Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if matrix.Rows() != 144 {
		t.Fatalf("12x12 grid should yield 144 cells, got %d", matrix.Rows())
	}
	if matrix.Cols() != 3 {
		t.Fatalf("want 3 features, got %d", matrix.Cols())
	}
	if coords.Len() != matrix.Rows() {
		t.Fatalf("coordinates cover %d cells for %d rows", coords.Len(), matrix.Rows())
	}
	if err := coords.Covers(matrix.CellIDs()); err != nil {
		t.Fatalf("coordinate coverage: %v", err)
	}
	for i := 0; i < matrix.Rows(); i++ {
		if !AllFinite(matrix.Row(i)) {
			t.Fatalf("row %d has non-finite values", i)
		}
	}
}

func TestTissueGenerator_DeterministicBySeed(t *testing.T) {
	cfg := DefaultTissueConfig()
	a, _, err := NewTissueGenerator(cfg).Generate()
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := NewTissueGenerator(cfg).Generate()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < a.Rows(); i++ {
		for j := 0; j < a.Cols(); j++ {
			if a.At(i, j) != b.At(i, j) {
				t.Fatalf("same seed diverged at (%d,%d): %g vs %g", i, j, a.At(i, j), b.At(i, j))
			}
		}
	}
}

func TestTissueGenerator_PlantedSpatialCoupling(t *testing.T) {
	cfg := DefaultTissueConfig()
	gen := NewTissueGenerator(cfg)
	matrix, _, err := gen.Generate()
	if err != nil {
		t.Fatal(err)
	}

	gradient, _ := matrix.Column("gradient")
	coupled, _ := matrix.Column("coupled")
	noise, _ := matrix.Column("noise")

	if r := correlation(gradient, coupled); r < 0.5 {
		t.Fatalf("coupled should track the smooth field, correlation %g", r)
	}
	if r := math.Abs(correlation(gradient, noise)); r > 0.3 {
		t.Fatalf("noise should be spatially independent, correlation %g", r)
	}
}

func correlation(a, b []float64) float64 {
	meanA, meanB := mean(a), mean(b)
	cov, varA, varB := 0.0, 0.0, 0.0
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	return cov / math.Sqrt(varA*varB)
}

func mean(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
