package audit

import (
	"context"
	"time"

	domain "crm/internal/domain/audit"
)

// Store is append-only persistence for audit events.
type Store interface {
	// Save appends an event.
	// PRE: event is valid
	Save(ctx context.Context, event domain.Event) error

	// List returns events newest first.
	List(ctx context.Context, filter Filter) ([]domain.Event, error)

	// GetByID retrieves a specific event.
	GetByID(ctx context.Context, id string) (domain.Event, error)
}

// Filter narrows List results. Zero fields are ignored.
type Filter struct {
	Category   domain.Category
	Action     domain.Action
	ActorID    string
	ResourceID string
	From       time.Time
	To         time.Time
	Limit      int
}

var _ Store = (*SQLiteStore)(nil)
