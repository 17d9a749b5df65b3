package spatial

import (
	"math"
	"testing"

	"spatialview/domain/core"
	"spatialview/domain/view"
)

func lineCoords() *view.Coordinates {
	return view.NewCoordinates(map[string]view.Point{
		"c1": {Row: 0, Col: 0},
		"c2": {Row: 1, Col: 0},
		"c3": {Row: 5, Col: 0},
	})
}

func lineMatrix(t *testing.T) *view.FeatureMatrix {
	t.Helper()
	m, err := view.NewFeatureMatrix(
		[]string{"c1", "c2", "c3"},
		[]string{"marker"},
		[]float64{10, 12, 99},
	)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestBuildJuxta_ThresholdNeighborhoods(t *testing.T) {
	ns, err := BuildJuxta(lineCoords(), []string{"c1", "c2", "c3"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := ns.Neighbors(0); len(got) != 1 || got[0] != 1 {
		t.Fatalf("c1 neighbors: want [1], got %v", got)
	}
	if got := ns.Neighbors(1); len(got) != 1 || got[0] != 0 {
		t.Fatalf("c2 neighbors: want [0], got %v", got)
	}
	if got := ns.Neighbors(2); len(got) != 0 {
		t.Fatalf("c3 should be isolated, got %v", got)
	}
}

func TestBuildJuxta_Rejects(t *testing.T) {
	if _, err := BuildJuxta(lineCoords(), []string{"c1"}, 0); err == nil {
		t.Fatal("zero threshold accepted")
	}
	_, err := BuildJuxta(lineCoords(), []string{"c1", "ghost"}, 2)
	if err == nil || !core.IsDataError(err) {
		t.Fatalf("missing coordinate: want data error, got %v", err)
	}
}

func TestAggregate_BinaryWithSentinel(t *testing.T) {
	m := lineMatrix(t)
	ns, err := BuildJuxta(lineCoords(), m.CellIDs(), 2)
	if err != nil {
		t.Fatal(err)
	}

	agg, err := Aggregate(m, ns, SentinelNaN)
	if err != nil {
		t.Fatal(err)
	}
	if got := agg.At(0, 0); got != 12 {
		t.Fatalf("c1 aggregated: want 12, got %g", got)
	}
	if got := agg.At(1, 0); got != 10 {
		t.Fatalf("c2 aggregated: want 10, got %g", got)
	}
	if got := agg.At(2, 0); !math.IsNaN(got) {
		t.Fatalf("isolated c3: want NaN sentinel, got %g", got)
	}

	zeroed, err := Aggregate(m, ns, SentinelZero)
	if err != nil {
		t.Fatal(err)
	}
	if got := zeroed.At(2, 0); got != 0 {
		t.Fatalf("isolated c3 with zero policy: want 0, got %g", got)
	}
}

func TestAggregate_IndexMismatch(t *testing.T) {
	m := lineMatrix(t)
	ns, err := BuildJuxta(lineCoords(), []string{"c2", "c1", "c3"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Aggregate(m, ns, SentinelNaN)
	if err == nil || !core.IsConfigurationError(err) {
		t.Fatalf("want index mismatch configuration error, got %v", err)
	}
}

func TestKernelWeight_DecaysWithDistance(t *testing.T) {
	for _, family := range []KernelFamily{KernelGaussian, KernelExponential, KernelLinear} {
		prev := family.weight(0, 10)
		if prev != 1 {
			t.Errorf("%s: weight at distance 0 should be 1, got %g", family, prev)
		}
		for d := 1.0; d <= 30; d++ {
			w := family.weight(d, 10)
			if w > prev {
				t.Fatalf("%s: weight increased from %g to %g at distance %g", family, prev, w, d)
			}
			prev = w
		}
	}
}

func TestKernelWeight_WidensWithBandwidth(t *testing.T) {
	for _, family := range []KernelFamily{KernelGaussian, KernelExponential, KernelLinear} {
		narrow := family.weight(5, 2)
		wide := family.weight(5, 20)
		if wide <= narrow {
			t.Errorf("%s: larger bandwidth should weight distance 5 higher: %g vs %g",
				family, wide, narrow)
		}
	}
}

func TestParseKernelFamily(t *testing.T) {
	if _, err := ParseKernelFamily("gaussian"); err != nil {
		t.Fatalf("gaussian rejected: %v", err)
	}
	_, err := ParseKernelFamily("triangular")
	if err == nil || !core.IsConfigurationError(err) {
		t.Fatalf("unknown kernel: want configuration error, got %v", err)
	}
}

func TestAggregate_WeightedNormalizesRows(t *testing.T) {
	// A constant feature must aggregate to the same constant under any
	// kernel, since the row weights are normalized to sum to 1.
	cells := []string{"c1", "c2", "c3"}
	m, err := view.NewFeatureMatrix(cells, []string{"marker"}, []float64{7, 7, 7})
	if err != nil {
		t.Fatal(err)
	}
	ns, err := BuildPara(lineCoords(), cells, 3, KernelGaussian)
	if err != nil {
		t.Fatal(err)
	}
	agg, err := Aggregate(m, ns, SentinelNaN)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if got := agg.At(i, 0); math.Abs(got-7) > 1e-9 {
			t.Fatalf("cell %d: want 7, got %g", i, got)
		}
	}
}

func TestAggregate_WeightedExcludesSelf(t *testing.T) {
	m := lineMatrix(t)
	ns, err := BuildPara(lineCoords(), m.CellIDs(), 1, KernelGaussian)
	if err != nil {
		t.Fatal(err)
	}
	if w := ns.Weight(0, 0); w != 0 {
		t.Fatalf("diagonal weight must be zero, got %g", w)
	}
	agg, err := Aggregate(m, ns, SentinelNaN)
	if err != nil {
		t.Fatal(err)
	}
	// c1's paracrine value is dominated by c2, never by its own 10.
	got := agg.At(0, 0)
	if math.Abs(got-12) > 1e-3 {
		t.Fatalf("c1 para value should be close to c2's 12, got %g", got)
	}
}

func TestBuilder_NamesAndDerivation(t *testing.T) {
	m := lineMatrix(t)
	b := NewBuilder(lineCoords())

	c := b.InitialView(m)
	c, err := b.AddJuxta(c, 2)
	if err != nil {
		t.Fatal(err)
	}
	c, err = b.AddPara(c, 3.5, KernelExponential)
	if err != nil {
		t.Fatal(err)
	}

	names := c.Names()
	want := []string{"intra", "juxta.2", "para.3.5"}
	if len(names) != len(want) {
		t.Fatalf("want views %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("want views %v, got %v", want, names)
		}
	}

	v, _ := c.View("juxta.2")
	if v.Kind != view.KindJuxta {
		t.Fatalf("juxta view kind: got %s", v.Kind)
	}
	if v.Params["threshold"] != 2 {
		t.Fatalf("threshold param: got %g", v.Params["threshold"])
	}

	// Duplicate parameter would collide on name instead of stacking.
	if _, err := b.AddJuxta(c, 2); err == nil {
		t.Fatal("duplicate juxta parameter accepted")
	}
}

func TestParseSentinel(t *testing.T) {
	if s, err := ParseSentinel(""); err != nil || s != SentinelNaN {
		t.Fatalf("empty sentinel: want default nan, got %q (%v)", s, err)
	}
	if _, err := ParseSentinel("drop"); err == nil {
		t.Fatal("unknown sentinel accepted")
	}
}
