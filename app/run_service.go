// Package app orchestrates full analysis runs: fanning per-(target, view)
// training units out over a worker pool, combining out-of-fold predictions
// per target, and aggregating the run tables for persistence.
package app

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"time"

	"spatialview/adapters/model"
	"spatialview/domain/core"
	"spatialview/domain/result"
	"spatialview/domain/view"
	"spatialview/internal"
	"spatialview/ports"

	"golang.org/x/sync/errgroup"
)

// RunRequest defines one deterministic analysis invocation.
type RunRequest struct {
	Label       string
	Seed        int64
	Folds       int
	Model       model.Kind
	Forest      model.ForestConfig
	BypassIntra bool

	// Workers bounds the number of concurrently fitting (target, view)
	// units. Zero means one worker per CPU. Any value yields the same
	// result: every unit seeds its own generators from (Seed, target,
	// view), so scheduling order cannot leak into the output.
	Workers int

	// Targets restricts the run to a subset of intrinsic features. Empty
	// means every intrinsic feature is modeled in turn.
	Targets []string

	Views view.Collection
}

// RunService executes analysis runs and persists their results.
type RunService struct {
	store ports.ResultStore
	log   *internal.Logger
}

// NewRunService creates a run service. A nil store skips persistence, which
// the tests and dry runs use.
func NewRunService(store ports.ResultStore, log *internal.Logger) *RunService {
	if log == nil {
		log = internal.DefaultLogger
	}
	return &RunService{store: store, log: log.Tagged("run")}
}

// trainUnit is one (target, view) cross-validated fit dispatched to the
// worker pool.
type trainUnit struct {
	target string
	view   view.View
	folds  []result.FoldResult
}

// Run executes the full analysis: per-view CV fits for every target, the
// per-target meta-model combination, and table aggregation. The returned
// RunResult is already persisted when a store is configured.
func (s *RunService) Run(ctx context.Context, req RunRequest) (*result.RunResult, error) {
	started := time.Now()

	label, err := core.ParseRunLabel(req.Label)
	if err != nil {
		return nil, err
	}
	cfg := model.TrainConfig{Folds: req.Folds, Model: req.Model, Forest: req.Forest}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	intra, ok := req.Views.Intra()
	if !ok {
		return nil, core.NewConfigError("view collection has no intrinsic view")
	}

	targets := req.Targets
	if len(targets) == 0 {
		targets = intra.Data.Features()
	}
	for _, t := range targets {
		if _, ok := intra.Data.ColumnIndex(t); !ok {
			return nil, core.NewConfigError(fmt.Sprintf("target %s is not an intrinsic feature", t))
		}
	}

	units := s.buildUnits(targets, req)
	s.log.Info("run %s: %d targets x %d views, %d units, model=%s folds=%d seed=%d",
		label, len(targets), req.Views.Len(), len(units), cfg.Model, cfg.Folds, req.Seed)

	if err := s.fitUnits(ctx, units, intra, cfg, req.Seed, req.Workers); err != nil {
		return nil, err
	}

	outcomes, allFolds := s.combine(targets, units, intra, req)

	res := &result.RunResult{
		RunID:       core.RunID(core.NewID()),
		Label:       label,
		Seed:        req.Seed,
		ModelKind:   string(cfg.Model),
		Folds:       cfg.Folds,
		BypassIntra: req.BypassIntra,
		Views:       req.Views.Names(),
		Fingerprint: s.fingerprint(label, req, targets),
		CreatedAt:   time.Now().UTC(),
		Performance: result.BuildPerformance(outcomes),
		Importance:  result.BuildImportance(allFolds),
	}

	if s.store != nil {
		if err := s.store.Save(ctx, res); err != nil {
			return nil, err
		}
	}
	s.log.Info("run %s: %d performance rows, %d importance rows in %s",
		label, len(res.Performance), len(res.Importance), time.Since(started).Round(time.Millisecond))
	return res, nil
}

// buildUnits enumerates every (target, view) fit. Under bypass-intra the
// intrinsic view trains no model at all, so no intrinsic signal can reach
// the combiner.
func (s *RunService) buildUnits(targets []string, req RunRequest) []*trainUnit {
	units := make([]*trainUnit, 0, len(targets)*req.Views.Len())
	for _, target := range targets {
		for _, v := range req.Views.Views() {
			if req.BypassIntra && v.Kind == view.KindIntra {
				continue
			}
			units = append(units, &trainUnit{target: target, view: v})
		}
	}
	return units
}

// fitUnits runs every unit on a bounded worker pool. Each unit writes only
// its own slot, so collection needs no locking.
func (s *RunService) fitUnits(ctx context.Context, units []*trainUnit, intra view.View,
	cfg model.TrainConfig, seed int64, workers int) error {

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, u := range units {
		u := u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			y, _ := intra.Data.Column(u.target)
			unitSeed := core.DeriveSeed(seed, u.target, u.view.Name)
			folds, err := model.FitView(u.view, u.target, y, cfg, unitSeed)
			if err != nil {
				return fmt.Errorf("target %s view %s: %w", u.target, u.view.Name, err)
			}
			u.folds = folds
			s.log.Debug("fitted target=%s view=%s folds=%d", u.target, u.view.Name, len(folds))
			return nil
		})
	}
	return g.Wait()
}

// combine runs the meta-model per target and gathers the flat fold list
// that feeds the importance table.
func (s *RunService) combine(targets []string, units []*trainUnit, intra view.View,
	req RunRequest) ([]result.TargetOutcome, []result.FoldResult) {

	byTarget := make(map[string]map[string][]result.FoldResult, len(targets))
	var allFolds []result.FoldResult
	for _, u := range units {
		m := byTarget[u.target]
		if m == nil {
			m = make(map[string][]result.FoldResult)
			byTarget[u.target] = m
		}
		m[u.view.Name] = u.folds
		allFolds = append(allFolds, u.folds...)
	}

	viewOrder := req.Views.Names()
	outcomes := make([]result.TargetOutcome, 0, len(targets))
	for _, target := range targets {
		y, _ := intra.Data.Column(target)
		out := model.CombineViews(target, y, byTarget[target], viewOrder, req.BypassIntra)
		for _, failed := range out.FailedViews {
			s.log.Warn("target %s: view %s excluded, every fold failed", target, failed)
		}
		outcomes = append(outcomes, out)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Target < outcomes[j].Target })
	return outcomes, allFolds
}

func (s *RunService) fingerprint(label string, req RunRequest, targets []string) core.Hash {
	parts := []string{
		string(req.Model),
		strconv.Itoa(req.Folds),
		strconv.FormatBool(req.BypassIntra),
	}
	parts = append(parts, req.Views.Names()...)
	parts = append(parts, targets...)
	return core.ComputeRunFingerprint(label, req.Seed, parts...)
}
