package config

import (
	"testing"

	"spatialview/domain/core"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RESULTS_DIR", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RUN_SEED", "")
	t.Setenv("RUN_FOLDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("defaults should load: %v", err)
	}
	if cfg.Storage.ResultsDir != "./results" {
		t.Errorf("default results dir: got %q", cfg.Storage.ResultsDir)
	}
	if cfg.Run.Seed != 42 || cfg.Run.Folds != 5 || cfg.Run.Model != "ensemble" {
		t.Errorf("default run config: %+v", cfg.Run)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RESULTS_DIR", "/data/runs")
	t.Setenv("DATABASE_URL", "postgres://localhost/spatialview")
	t.Setenv("RUN_SEED", "1234")
	t.Setenv("RUN_FOLDS", "10")
	t.Setenv("RUN_MODEL", "linear")
	t.Setenv("MATRIX_FILE", "cells.xlsx")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.DatabaseURL != "postgres://localhost/spatialview" {
		t.Errorf("database url: got %q", cfg.Storage.DatabaseURL)
	}
	if cfg.Run.Seed != 1234 || cfg.Run.Folds != 10 || cfg.Run.Model != "linear" {
		t.Errorf("run config overrides lost: %+v", cfg.Run)
	}
	if cfg.Data.MatrixFile != "cells.xlsx" {
		t.Errorf("matrix file: got %q", cfg.Data.MatrixFile)
	}
}

func TestLoad_RejectsBadFolds(t *testing.T) {
	t.Setenv("RUN_FOLDS", "1")
	_, err := Load()
	if err == nil {
		t.Fatal("single fold accepted")
	}
	if !core.IsConfigurationError(err) {
		t.Fatalf("want configuration error, got %v", err)
	}
}
