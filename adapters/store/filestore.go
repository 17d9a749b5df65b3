// Package store persists run result tables. The file store writes CSV
// tables plus a JSON manifest under a run-label directory; the postgres
// store keeps the same tables in a shared database.
package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"spatialview/domain/core"
	"spatialview/domain/result"
)

const (
	performanceFile = "performance.csv"
	importanceFile  = "importance.csv"
	manifestFile    = "manifest.json"
)

// FileStore writes and reads run results under base/<run label>/.
type FileStore struct {
	base string
}

// NewFileStore creates a file store rooted at the given directory.
func NewFileStore(base string) *FileStore {
	return &FileStore{base: base}
}

// manifest is the persisted audit record for one run.
type manifest struct {
	RunID       core.RunID `json:"run_id"`
	Label       string     `json:"label"`
	Seed        int64      `json:"seed"`
	ModelKind   string     `json:"model_kind"`
	Folds       int        `json:"folds"`
	BypassIntra bool       `json:"bypass_intra"`
	Views       []string   `json:"views"`
	Fingerprint core.Hash  `json:"fingerprint"`
	CreatedAt   string     `json:"created_at"`
}

// Save writes the performance and importance tables plus the run manifest
// under the run-label directory. Failures are persistence errors surfaced
// to the caller; the engine never retries them.
func (s *FileStore) Save(ctx context.Context, res *result.RunResult) error {
	label, err := core.ParseRunLabel(res.Label)
	if err != nil {
		return err
	}
	dir := filepath.Join(s.base, label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create run directory: %v", core.ErrPersistence, err)
	}

	if err := s.writePerformance(filepath.Join(dir, performanceFile), res.Performance); err != nil {
		return err
	}
	if err := s.writeImportance(filepath.Join(dir, importanceFile), res.Importance); err != nil {
		return err
	}

	m := manifest{
		RunID:       res.RunID,
		Label:       res.Label,
		Seed:        res.Seed,
		ModelKind:   res.ModelKind,
		Folds:       res.Folds,
		BypassIntra: res.BypassIntra,
		Views:       res.Views,
		Fingerprint: res.Fingerprint,
		CreatedAt:   res.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z"),
	}
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal manifest: %v", core.ErrPersistence, err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), payload, 0o644); err != nil {
		return fmt.Errorf("%w: write manifest: %v", core.ErrPersistence, err)
	}
	return nil
}

// Load reconstructs an equivalent RunResult from a run-label directory.
func (s *FileStore) Load(ctx context.Context, label string) (*result.RunResult, error) {
	label, err := core.ParseRunLabel(label)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.base, label)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, label)
	}

	payload, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %v", core.ErrPersistence, err)
	}
	var m manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", core.ErrPersistence, err)
	}

	res := &result.RunResult{
		RunID:       m.RunID,
		Label:       m.Label,
		Seed:        m.Seed,
		ModelKind:   m.ModelKind,
		Folds:       m.Folds,
		BypassIntra: m.BypassIntra,
		Views:       m.Views,
		Fingerprint: m.Fingerprint,
	}
	if created, err := parseManifestTime(m.CreatedAt); err == nil {
		res.CreatedAt = created
	}
	if res.Performance, err = s.readPerformance(filepath.Join(dir, performanceFile)); err != nil {
		return nil, err
	}
	if res.Importance, err = s.readImportance(filepath.Join(dir, importanceFile)); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *FileStore) writePerformance(path string, rows []result.PerformanceRow) error {
	records := [][]string{{"target", "view", "view_r2", "intra_r2", "multi_r2", "gain_r2", "contribution"}}
	for _, r := range rows {
		records = append(records, []string{
			r.Target, r.View,
			formatValue(r.ViewR2), formatValue(r.IntraR2), formatValue(r.MultiR2),
			formatValue(r.GainR2), formatValue(r.Contribution),
		})
	}
	return writeCSV(path, records)
}

func (s *FileStore) writeImportance(path string, rows []result.ImportanceRow) error {
	records := [][]string{{"view", "predictor", "target", "score"}}
	for _, r := range rows {
		records = append(records, []string{r.View, r.Predictor, r.Target, formatValue(r.Score)})
	}
	return writeCSV(path, records)
}

func (s *FileStore) readPerformance(path string) ([]result.PerformanceRow, error) {
	records, err := readCSV(path, 7)
	if err != nil {
		return nil, err
	}
	rows := make([]result.PerformanceRow, 0, len(records))
	for _, rec := range records {
		row := result.PerformanceRow{Target: rec[0], View: rec[1]}
		if row.ViewR2, err = parseValue(rec[2]); err != nil {
			return nil, err
		}
		if row.IntraR2, err = parseValue(rec[3]); err != nil {
			return nil, err
		}
		if row.MultiR2, err = parseValue(rec[4]); err != nil {
			return nil, err
		}
		if row.GainR2, err = parseValue(rec[5]); err != nil {
			return nil, err
		}
		if row.Contribution, err = parseValue(rec[6]); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *FileStore) readImportance(path string) ([]result.ImportanceRow, error) {
	records, err := readCSV(path, 4)
	if err != nil {
		return nil, err
	}
	rows := make([]result.ImportanceRow, 0, len(records))
	for _, rec := range records {
		score, err := parseValue(rec[3])
		if err != nil {
			return nil, err
		}
		rows = append(rows, result.ImportanceRow{View: rec[0], Predictor: rec[1], Target: rec[2], Score: score})
	}
	return rows, nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", core.ErrPersistence, filepath.Base(path), err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("%w: write %s: %v", core.ErrPersistence, filepath.Base(path), err)
	}
	return nil
}

func readCSV(path string, wantFields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", core.ErrPersistence, filepath.Base(path), err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = wantFields
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrPersistence, filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", core.ErrPersistence, filepath.Base(path))
	}
	return records[1:], nil // drop header
}

func parseManifestTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// formatValue round-trips float64 exactly, including the NaN marker for
// undefined entries.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad numeric value %q: %v", core.ErrPersistence, s, err)
	}
	return v, nil
}
