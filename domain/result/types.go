// Package result holds the engine's output types: per-fold fit results,
// per-target meta-model outcomes, and the aggregated run tables consumed by
// downstream plotting and reporting.
package result

import (
	"time"

	"spatialview/domain/core"
)

// FoldResult records one (target, view, fold) fit: the held-out
// predictions, the matching true values, the held-out R², and the fold's
// predictor importance scores.
type FoldResult struct {
	Target string
	View   string
	Fold   int

	// TestRows are row positions (into the collection's cell index) of the
	// held-out partition, aligned with Pred and Actual.
	TestRows []int
	Pred     []float64
	Actual   []float64

	// R2 is held-out R² for this fold. R2Defined is false when the target
	// is constant within the held-out partition (SS_tot ~ 0); such folds
	// are excluded from aggregation instead of producing infinities.
	R2        float64
	R2Defined bool

	// Importance maps each predictor used in this fold to its score.
	Importance map[string]float64

	// Failed marks a localized model-fit failure (all predictors
	// degenerate). Failed folds carry no predictions and are excluded from
	// the meta-model.
	Failed     bool
	FailReason string
}

// TargetOutcome is the meta-model combiner's result for one target.
type TargetOutcome struct {
	Target string

	// ViewR2 is the mean held-out R² per view across defined folds.
	ViewR2 map[string]float64

	// IntraR2 is the intrinsic-only meta-model R². Undefined when
	// bypass-intra is set or the intrinsic view failed.
	IntraR2      float64
	IntraDefined bool

	// MultiR2 is the multi-view meta-model R².
	MultiR2      float64
	MultiDefined bool

	// GainR2 = MultiR2 - IntraR2; zero by definition under bypass-intra.
	GainR2 float64

	// Contributions holds each view's share of the multi-view combiner,
	// normalized to sum to 100 across views.
	Contributions map[string]float64

	// FailedViews lists views excluded from the combiner because every
	// fold failed for this target.
	FailedViews []string
}

// PerformanceRow is one row of the persisted performance table, keyed by
// (target, view).
type PerformanceRow struct {
	Target       string  `json:"target" db:"target"`
	View         string  `json:"view" db:"view_name"`
	ViewR2       float64 `json:"view_r2" db:"view_r2"`
	IntraR2      float64 `json:"intra_r2" db:"intra_r2"`
	MultiR2      float64 `json:"multi_r2" db:"multi_r2"`
	GainR2       float64 `json:"gain_r2" db:"gain_r2"`
	Contribution float64 `json:"contribution" db:"contribution"`
}

// ImportanceRow is one row of the persisted importance table: the mean
// across folds of one predictor's score for one (target, view).
type ImportanceRow struct {
	View      string  `json:"view" db:"view_name"`
	Predictor string  `json:"predictor" db:"predictor"`
	Target    string  `json:"target" db:"target"`
	Score     float64 `json:"score" db:"score"`
}

// RunResult is one analysis invocation's persisted output. It is read back
// unmodified by downstream consumers.
type RunResult struct {
	RunID       core.RunID `json:"run_id"`
	Label       string     `json:"label"`
	Seed        int64      `json:"seed"`
	ModelKind   string     `json:"model_kind"`
	Folds       int        `json:"folds"`
	BypassIntra bool       `json:"bypass_intra"`
	Views       []string   `json:"views"`
	Fingerprint core.Hash  `json:"fingerprint"`
	CreatedAt   time.Time  `json:"created_at"`

	Performance []PerformanceRow `json:"performance"`
	Importance  []ImportanceRow  `json:"importance"`
}
