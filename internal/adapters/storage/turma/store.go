package turma

import (
	"context"
	"time"

	domain "crm/internal/domain/turma"
)

// Store persists Turma state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Turma, error)
	GetByCode(ctx context.Context, code string) (domain.Turma, error)
	Save(ctx context.Context, value domain.Turma) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Turma, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	CodeInUse(ctx context.Context, code, excludeID string) (bool, error)
	ModulesBetween(ctx context.Context, filter ModuleFilter) ([]domain.Module, error)
}

// ListFilter carries filtering parameters for List and Count.
type ListFilter struct {
	City         string
	Status       string
	StudioID     string
	InstructorID string
	From         time.Time // classes whose last module is on or after From
	Search       string
	Sort         string
	Dir          string
	Limit        int
	Offset       int
}

// ModuleFilter selects dated modules of active classes in [From, To).
type ModuleFilter struct {
	From         time.Time
	To           time.Time
	StudioID     string
	InstructorID string
}

// SortColumns maps public sort keys to columns.
var SortColumns = map[string]string{
	"course":    "course",
	"city":      "city",
	"mod1_date": "mod1_date",
	"status":    "status",
}

var _ Store = (*SQLiteStore)(nil)
