package ticket

import (
	"context"

	domain "crm/internal/domain/ticket"
)

// Store persists tickets and their message threads.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Ticket, error)
	Save(ctx context.Context, value domain.Ticket) error
	// SaveWithMessage persists the ticket and appends msg atomically.
	SaveWithMessage(ctx context.Context, value domain.Ticket, msg domain.Message) error
	List(ctx context.Context, filter ListFilter) ([]domain.Ticket, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	ListMessages(ctx context.Context, ticketID string) ([]domain.Message, error)
}

// ListFilter carries filtering parameters for List and Count.
type ListFilter struct {
	Status      string
	Statuses    []string
	Priority    string
	RequesterID string
	AssigneeID  string
	Search      string
	Limit       int
	Offset      int
}

var _ Store = (*SQLiteStore)(nil)
