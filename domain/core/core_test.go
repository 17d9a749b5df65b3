package core

import (
	"errors"
	"testing"
)

func TestDeriveSeed_Deterministic(t *testing.T) {
	a := DeriveSeed(42, "conversion_7d", "juxta.30")
	b := DeriveSeed(42, "conversion_7d", "juxta.30")
	if a != b {
		t.Fatalf("same inputs produced different seeds: %d vs %d", a, b)
	}
	if a < 0 {
		t.Fatalf("derived seed must be non-negative, got %d", a)
	}
}

func TestDeriveSeed_SensitiveToEveryPart(t *testing.T) {
	base := DeriveSeed(42, "target_a", "intra")
	cases := map[string]int64{
		"different base":   DeriveSeed(43, "target_a", "intra"),
		"different target": DeriveSeed(42, "target_b", "intra"),
		"different view":   DeriveSeed(42, "target_a", "juxta.30"),
	}
	for name, seed := range cases {
		if seed == base {
			t.Errorf("%s: expected a distinct seed, got %d twice", name, seed)
		}
	}
}

func TestComputeRunFingerprint_Stable(t *testing.T) {
	a := ComputeRunFingerprint("baseline", 42, "linear", "5")
	b := ComputeRunFingerprint("baseline", 42, "linear", "5")
	if a != b {
		t.Fatalf("fingerprint not stable: %s vs %s", a, b)
	}
	c := ComputeRunFingerprint("baseline", 43, "linear", "5")
	if a == c {
		t.Fatal("fingerprint ignored the seed")
	}
}

func TestParseRunLabel(t *testing.T) {
	if _, err := ParseRunLabel("tumor_margin_v2"); err != nil {
		t.Fatalf("valid label rejected: %v", err)
	}
	for _, bad := range []string{"", "a/b", "a\\b"} {
		if _, err := ParseRunLabel(bad); err == nil {
			t.Errorf("label %q should be rejected", bad)
		} else if !IsConfigurationError(err) {
			t.Errorf("label %q: want configuration error, got %v", bad, err)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	if !errors.Is(NewKernelError("triangular"), ErrConfiguration) {
		t.Error("kernel error should be a configuration error")
	}
	if !errors.Is(NewNonFiniteError("area", 3), ErrData) {
		t.Error("non-finite error should be a data error")
	}
	err := NewDegenerateError("area", "juxta.30", 2)
	if !IsModelFitError(err) {
		t.Error("degenerate error should be a model fit error")
	}
	if IsDataError(err) {
		t.Error("degenerate error must not be a data error")
	}
	if !errors.Is(ErrRunNotFound, ErrPersistence) {
		t.Error("run-not-found should be a persistence error")
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewID().String()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}
