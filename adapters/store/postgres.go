package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spatialview/domain/core"
	"spatialview/domain/result"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresStore keeps run result tables in a shared database so several
// analysts can reuse persisted runs. It implements the same ResultStore
// contract as the file store.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to the database and ensures the run tables
// exist.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", core.ErrPersistence, err)
	}
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		label        TEXT PRIMARY KEY,
		run_id       TEXT NOT NULL,
		seed         BIGINT NOT NULL,
		model_kind   TEXT NOT NULL,
		folds        INT NOT NULL,
		bypass_intra BOOLEAN NOT NULL,
		views        TEXT[] NOT NULL,
		fingerprint  TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS run_performance (
		label        TEXT NOT NULL REFERENCES runs(label) ON DELETE CASCADE,
		target       TEXT NOT NULL,
		view_name    TEXT NOT NULL,
		view_r2      DOUBLE PRECISION NOT NULL,
		intra_r2     DOUBLE PRECISION NOT NULL,
		multi_r2     DOUBLE PRECISION NOT NULL,
		gain_r2      DOUBLE PRECISION NOT NULL,
		contribution DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (label, target, view_name)
	);
	CREATE TABLE IF NOT EXISTS run_importance (
		label     TEXT NOT NULL REFERENCES runs(label) ON DELETE CASCADE,
		view_name TEXT NOT NULL,
		predictor TEXT NOT NULL,
		target    TEXT NOT NULL,
		score     DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (label, target, view_name, predictor)
	);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: ensure schema: %v", core.ErrPersistence, err)
	}
	return nil
}

// Save writes a run result in one transaction, replacing any previous run
// persisted under the same label.
func (s *PostgresStore) Save(ctx context.Context, res *result.RunResult) error {
	label, err := core.ParseRunLabel(res.Label)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", core.ErrPersistence, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE label = $1`, label); err != nil {
		return fmt.Errorf("%w: clear previous run: %v", core.ErrPersistence, err)
	}

	views := make([]string, len(res.Views))
	copy(views, res.Views)
	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
		label, run_id, seed, model_kind, folds, bypass_intra, views, fingerprint, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		label, res.RunID, res.Seed, res.ModelKind, res.Folds, res.BypassIntra,
		pq.Array(views), res.Fingerprint.String(), res.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert run: %v", core.ErrPersistence, err)
	}

	for _, row := range res.Performance {
		_, err = tx.ExecContext(ctx, `INSERT INTO run_performance (
			label, target, view_name, view_r2, intra_r2, multi_r2, gain_r2, contribution
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			label, row.Target, row.View, row.ViewR2, row.IntraR2, row.MultiR2, row.GainR2, row.Contribution)
		if err != nil {
			return fmt.Errorf("%w: insert performance row: %v", core.ErrPersistence, err)
		}
	}
	for _, row := range res.Importance {
		_, err = tx.ExecContext(ctx, `INSERT INTO run_importance (
			label, view_name, predictor, target, score
		) VALUES ($1, $2, $3, $4, $5)`,
			label, row.View, row.Predictor, row.Target, row.Score)
		if err != nil {
			return fmt.Errorf("%w: insert importance row: %v", core.ErrPersistence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", core.ErrPersistence, err)
	}
	return nil
}

// Load reconstructs a run result persisted under the given label.
func (s *PostgresStore) Load(ctx context.Context, label string) (*result.RunResult, error) {
	label, err := core.ParseRunLabel(label)
	if err != nil {
		return nil, err
	}

	var run struct {
		RunID       string         `db:"run_id"`
		Seed        int64          `db:"seed"`
		ModelKind   string         `db:"model_kind"`
		Folds       int            `db:"folds"`
		BypassIntra bool           `db:"bypass_intra"`
		Views       pq.StringArray `db:"views"`
		Fingerprint string         `db:"fingerprint"`
		CreatedAt   sql.NullTime   `db:"created_at"`
	}
	query := `SELECT run_id, seed, model_kind, folds, bypass_intra, views, fingerprint, created_at
		FROM runs WHERE label = $1`
	if err := s.db.GetContext(ctx, &run, query, label); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, label)
		}
		return nil, fmt.Errorf("%w: load run: %v", core.ErrPersistence, err)
	}

	res := &result.RunResult{
		RunID:       core.RunID(run.RunID),
		Label:       label,
		Seed:        run.Seed,
		ModelKind:   run.ModelKind,
		Folds:       run.Folds,
		BypassIntra: run.BypassIntra,
		Views:       []string(run.Views),
		Fingerprint: core.Hash(run.Fingerprint),
	}
	if run.CreatedAt.Valid {
		res.CreatedAt = run.CreatedAt.Time
	}

	err = s.db.SelectContext(ctx, &res.Performance,
		`SELECT target, view_name, view_r2, intra_r2, multi_r2, gain_r2, contribution
		 FROM run_performance WHERE label = $1 ORDER BY target, view_name`, label)
	if err != nil {
		return nil, fmt.Errorf("%w: load performance: %v", core.ErrPersistence, err)
	}
	err = s.db.SelectContext(ctx, &res.Importance,
		`SELECT view_name, predictor, target, score
		 FROM run_importance WHERE label = $1 ORDER BY target, view_name, predictor`, label)
	if err != nil {
		return nil, fmt.Errorf("%w: load importance: %v", core.ErrPersistence, err)
	}
	return res, nil
}
