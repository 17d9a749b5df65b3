package store

import (
	"context"
	"math"
	"testing"
	"time"

	"spatialview/domain/core"
	"spatialview/domain/result"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *result.RunResult {
	return &result.RunResult{
		RunID:       core.RunID(core.NewID()),
		Label:       "margin_study",
		Seed:        42,
		ModelKind:   "ensemble",
		Folds:       5,
		BypassIntra: false,
		Views:       []string{"intra", "juxta.30", "para.60"},
		Fingerprint: core.ComputeRunFingerprint("margin_study", 42, "ensemble"),
		CreatedAt:   time.Date(2026, 3, 14, 9, 30, 0, 123456789, time.UTC),
		Performance: []result.PerformanceRow{
			{Target: "density", View: "intra", ViewR2: 0.51234567891234,
				IntraR2: 0.5, MultiR2: 0.8, GainR2: 0.3, Contribution: 40},
			{Target: "density", View: "juxta.30", ViewR2: 0.75,
				IntraR2: math.NaN(), MultiR2: 0.8, GainR2: 0.3, Contribution: 60},
		},
		Importance: []result.ImportanceRow{
			{View: "intra", Predictor: "area", Target: "density", Score: 0.625},
			{View: "juxta.30", Predictor: "area", Target: "density", Score: 1},
		},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	ctx := context.Background()
	saved := sampleRun()

	require.NoError(t, fs.Save(ctx, saved))
	loaded, err := fs.Load(ctx, saved.Label)
	require.NoError(t, err)

	assert.Equal(t, saved.RunID, loaded.RunID)
	assert.Equal(t, saved.Label, loaded.Label)
	assert.Equal(t, saved.Seed, loaded.Seed)
	assert.Equal(t, saved.ModelKind, loaded.ModelKind)
	assert.Equal(t, saved.Folds, loaded.Folds)
	assert.Equal(t, saved.Views, loaded.Views)
	assert.Equal(t, saved.Fingerprint, loaded.Fingerprint)
	assert.True(t, saved.CreatedAt.Equal(loaded.CreatedAt),
		"want %s, got %s", saved.CreatedAt, loaded.CreatedAt)

	require.Len(t, loaded.Performance, len(saved.Performance))
	for i, want := range saved.Performance {
		got := loaded.Performance[i]
		assert.Equal(t, want.Target, got.Target)
		assert.Equal(t, want.View, got.View)
		assert.InDelta(t, want.ViewR2, got.ViewR2, 1e-9)
		assert.InDelta(t, want.MultiR2, got.MultiR2, 1e-9)
		assert.InDelta(t, want.GainR2, got.GainR2, 1e-9)
		assert.InDelta(t, want.Contribution, got.Contribution, 1e-9)
	}

	// The undefined intra baseline must survive persistence as NaN, not 0.
	assert.True(t, math.IsNaN(loaded.Performance[1].IntraR2))

	require.Len(t, loaded.Importance, len(saved.Importance))
	for i, want := range saved.Importance {
		got := loaded.Importance[i]
		assert.Equal(t, want.View, got.View)
		assert.Equal(t, want.Predictor, got.Predictor)
		assert.Equal(t, want.Target, got.Target)
		assert.InDelta(t, want.Score, got.Score, 1e-9)
	}
}

func TestFileStore_OverwritesSameLabel(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	ctx := context.Background()

	first := sampleRun()
	require.NoError(t, fs.Save(ctx, first))

	second := sampleRun()
	second.Seed = 77
	second.Importance = second.Importance[:1]
	require.NoError(t, fs.Save(ctx, second))

	loaded, err := fs.Load(ctx, first.Label)
	require.NoError(t, err)
	assert.Equal(t, int64(77), loaded.Seed)
	assert.Len(t, loaded.Importance, 1)
}

func TestFileStore_LoadMissingRun(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	_, err := fs.Load(context.Background(), "never_ran")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestFileStore_RejectsBadLabel(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	bad := sampleRun()
	bad.Label = "a/b"
	err := fs.Save(context.Background(), bad)
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
}

func TestValueFormat_RoundTripsNaN(t *testing.T) {
	v, err := parseValue(formatValue(math.NaN()))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	v, err = parseValue(formatValue(0.1234567890123456))
	require.NoError(t, err)
	assert.Equal(t, 0.1234567890123456, v)
}
