package studio

import (
	"context"
	"time"

	domain "crm/internal/domain/studio"
)

// Store persists studios and their inventory.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Studio, error)
	Save(ctx context.Context, value domain.Studio) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Studio, error)
	Count(ctx context.Context, filter ListFilter) (int, error)

	GetItem(ctx context.Context, id string) (domain.Item, error)
	SaveItem(ctx context.Context, item domain.Item) error
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context, studioID string) ([]domain.Item, error)
	ListLowStock(ctx context.Context, studioIDs []string) ([]domain.Item, error)
	AdjustItemQuantity(ctx context.Context, id string, delta int, now time.Time) (domain.Item, error)
}

// ListFilter carries filtering parameters for List and Count.
type ListFilter struct {
	City      string
	Status    string
	PartnerID string
	Search    string
	Sort      string
	Dir       string
	Limit     int
	Offset    int
}

// SortColumns maps public sort keys to columns.
var SortColumns = map[string]string{
	"name":       "name",
	"city":       "city",
	"status":     "status",
	"created_at": "created_at",
}

var _ Store = (*SQLiteStore)(nil)
