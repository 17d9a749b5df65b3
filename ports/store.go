// Package ports defines the interfaces through which the engine talks to
// its adapters.
package ports

import (
	"context"

	"spatialview/domain/result"
)

// ResultStore persists run results under a run label and reads them back
// for downstream consumers. It is the engine's only I/O boundary. Two
// concurrent runs must use distinct labels; reusing one is a caller error.
type ResultStore interface {
	Save(ctx context.Context, res *result.RunResult) error
	Load(ctx context.Context, label string) (*result.RunResult, error)
}
