package instructor

import (
	"context"

	domain "crm/internal/domain/instructor"
)

// Store persists Instructor state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Instructor, error)
	GetByAccountID(ctx context.Context, accountID string) (domain.Instructor, error)
	Save(ctx context.Context, value domain.Instructor) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Instructor, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter carries filtering parameters for List and Count.
type ListFilter struct {
	City   string
	Status string
	Search string
	Sort   string
	Dir    string
	Limit  int
	Offset int
}

// SortColumns maps public sort keys to columns.
var SortColumns = map[string]string{
	"name":     "name",
	"city":     "city",
	"hired_at": "hired_at",
	"salary":   "salary_cents",
}

var _ Store = (*SQLiteStore)(nil)
