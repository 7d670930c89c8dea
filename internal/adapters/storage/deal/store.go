package deal

import (
	"context"

	domain "crm/internal/domain/deal"
)

// Store persists Deal state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Deal, error)
	GetByEmail(ctx context.Context, email string) (domain.Deal, error)
	Save(ctx context.Context, value domain.Deal) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Deal, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	ListByClassCode(ctx context.Context, code string) ([]domain.Deal, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Deal, error)
	CountByClassCodes(ctx context.Context, codes []string) (map[string]int, error)
	StageTotals(ctx context.Context) ([]StageTotal, error)
}

// ListFilter carries filtering parameters for List and Count.
type ListFilter struct {
	Stage     string
	ClassCode string
	OwnerID   string
	City      string
	Search    string
	Sort      string
	Dir       string
	Limit     int
	Offset    int
}

// StageTotal is the number and summed value of deals in one stage.
type StageTotal struct {
	Stage      string
	Count      int
	ValueCents int64
}

// SortColumns maps public sort keys to columns.
var SortColumns = map[string]string{
	"name":       "name",
	"stage":      "stage",
	"value":      "value_cents",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"city":       "city",
}

var _ Store = (*SQLiteStore)(nil)
