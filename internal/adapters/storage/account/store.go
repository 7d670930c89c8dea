package account

import (
	"context"

	domain "crm/internal/domain/account"
)

// Store persists Account state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]domain.Account, error)
	Count(ctx context.Context) (int, error)
	CountMatching(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter narrows account listings. Zero fields match everything.
type ListFilter struct {
	Role   string
	Status string
	Search string // substring of the email
	Sort   string // key of SortColumns
	Dir    string
	Limit  int
	Offset int
}

// SortColumns maps public sort keys to account columns.
var SortColumns = map[string]string{
	"email":   "email",
	"role":    "role",
	"created": "created_at",
}

var _ Store = (*SQLiteStore)(nil)
