package outbox

import (
	"context"

	domain "crm/internal/domain/outbox"
)

// Store persists outbox entries.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save upserts an entry.
	// PRE: entry has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns pending or retrying entries oldest first.
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// List returns entries filtered by status (empty = all), newest first.
	List(ctx context.Context, status string, limit int) ([]domain.Entry, error)

	// CountByStatus returns entry counts keyed by status.
	CountByStatus(ctx context.Context) (map[string]int, error)
}

var _ Store = (*SQLiteStore)(nil)
