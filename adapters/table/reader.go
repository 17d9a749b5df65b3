// Package table loads feature matrices and coordinate tables from the
// spreadsheet and CSV exports produced by upstream processing.
package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"spatialview/domain/core"
	"spatialview/domain/view"

	"github.com/xuri/excelize/v2"
)

// Reader handles both XLSX and CSV files, picking the format from the file
// extension.
type Reader struct {
	filePath string
	isXLSX   bool
}

// NewReader creates a reader for the given file.
func NewReader(filePath string) *Reader {
	ext := strings.ToLower(filepath.Ext(filePath))
	return &Reader{filePath: filePath, isXLSX: ext == ".xlsx" || ext == ".xlsm"}
}

// ReadFeatureMatrix parses a cells-by-features table. The first column
// holds cell identifiers; every remaining column is a numeric feature named
// by the header row. Entry invariants (unique names, finite values) are
// enforced by the matrix constructor.
func (r *Reader) ReadFeatureMatrix() (*view.FeatureMatrix, error) {
	records, err := r.readRecords()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 || len(records[0]) < 2 {
		return nil, fmt.Errorf("%w: %s has no feature columns or data rows", core.ErrData, r.filePath)
	}
	features := records[0][1:]
	cellIDs := make([]string, 0, len(records)-1)
	values := make([]float64, 0, (len(records)-1)*len(features))
	for rowNum, rec := range records[1:] {
		if len(rec) != len(features)+1 {
			return nil, fmt.Errorf("%w: %s row %d has %d fields, want %d",
				core.ErrData, r.filePath, rowNum+2, len(rec), len(features)+1)
		}
		cellIDs = append(cellIDs, rec[0])
		for col, raw := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d feature %s: %q is not numeric",
					core.ErrData, r.filePath, rowNum+2, features[col], raw)
			}
			values = append(values, v)
		}
	}
	return view.NewFeatureMatrix(cellIDs, features, values)
}

// ReadCoordinates parses a coordinate table with columns
// (cell id, row, col).
func (r *Reader) ReadCoordinates() (*view.Coordinates, error) {
	records, err := r.readRecords()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s has no coordinate rows", core.ErrData, r.filePath)
	}
	pos := make(map[string]view.Point, len(records)-1)
	for rowNum, rec := range records[1:] {
		if len(rec) < 3 {
			return nil, fmt.Errorf("%w: %s row %d needs (cell, row, col) fields",
				core.ErrData, r.filePath, rowNum+2)
		}
		row, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: bad row coordinate %q",
				core.ErrData, r.filePath, rowNum+2, rec[1])
		}
		col, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: bad col coordinate %q",
				core.ErrData, r.filePath, rowNum+2, rec[2])
		}
		if _, dup := pos[rec[0]]; dup {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateCell, rec[0])
		}
		pos[rec[0]] = view.Point{Row: row, Col: col}
	}
	return view.NewCoordinates(pos), nil
}

func (r *Reader) readRecords() ([][]string, error) {
	if r.isXLSX {
		return r.readXLSX()
	}
	return r.readCSV()
}

func (r *Reader) readCSV() ([][]string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", core.ErrData, r.filePath, err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrData, r.filePath, err)
	}
	return records, nil
}

func (r *Reader) readXLSX() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", core.ErrData, r.filePath, err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s has no sheets", core.ErrData, r.filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrData, r.filePath, err)
	}
	return rows, nil
}
