package ports

import (
	"context"
	"errors"

	"github.com/aescanero/chloe/pkg/domain"
)

// ErrNotFound is returned by stores for unknown run IDs
var ErrNotFound = errors.New("not found")

// RunStore persists run records. It is the checkpoint collaborator of the
// executor: the orchestrator saves the merged state after each barrier.
type RunStore interface {
	Save(ctx context.Context, record *domain.RunRecord) error
	Get(ctx context.Context, runID string) (*domain.RunRecord, error)
	Delete(ctx context.Context, runID string) error
	List(ctx context.Context) ([]string, error)
}
