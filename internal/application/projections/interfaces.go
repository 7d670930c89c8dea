package projections

import (
	"context"

	"crm/internal/adapters/storage/account"
	"crm/internal/adapters/storage/audit"
	"crm/internal/adapters/storage/deal"
	"crm/internal/adapters/storage/instructor"
	"crm/internal/adapters/storage/studio"
	"crm/internal/adapters/storage/ticket"
	"crm/internal/adapters/storage/turma"
	domainAccount "crm/internal/domain/account"
	domainAudit "crm/internal/domain/audit"
	domainDeal "crm/internal/domain/deal"
	domainInstructor "crm/internal/domain/instructor"
	domainOutbox "crm/internal/domain/outbox"
	domainStudio "crm/internal/domain/studio"
	domainTicket "crm/internal/domain/ticket"
	domainTurma "crm/internal/domain/turma"
)

// DealStore interface for deal queries.
type DealStore interface {
	List(ctx context.Context, filter deal.ListFilter) ([]domainDeal.Deal, error)
	Count(ctx context.Context, filter deal.ListFilter) (int, error)
	ListByClassCode(ctx context.Context, code string) ([]domainDeal.Deal, error)
	ListByEmail(ctx context.Context, email string) ([]domainDeal.Deal, error)
	CountByClassCodes(ctx context.Context, codes []string) (map[string]int, error)
	StageTotals(ctx context.Context) ([]deal.StageTotal, error)
}

// ClassStore interface for class queries.
type ClassStore interface {
	GetByID(ctx context.Context, id string) (domainTurma.Turma, error)
	GetByCode(ctx context.Context, code string) (domainTurma.Turma, error)
	List(ctx context.Context, filter turma.ListFilter) ([]domainTurma.Turma, error)
	Count(ctx context.Context, filter turma.ListFilter) (int, error)
	ModulesBetween(ctx context.Context, filter turma.ModuleFilter) ([]domainTurma.Module, error)
}

// InstructorStore interface for instructor queries.
type InstructorStore interface {
	GetByAccountID(ctx context.Context, accountID string) (domainInstructor.Instructor, error)
	List(ctx context.Context, filter instructor.ListFilter) ([]domainInstructor.Instructor, error)
	Count(ctx context.Context, filter instructor.ListFilter) (int, error)
}

// StudioStore interface for studio and inventory queries.
type StudioStore interface {
	GetByID(ctx context.Context, id string) (domainStudio.Studio, error)
	List(ctx context.Context, filter studio.ListFilter) ([]domainStudio.Studio, error)
	Count(ctx context.Context, filter studio.ListFilter) (int, error)
	ListItems(ctx context.Context, studioID string) ([]domainStudio.Item, error)
	ListLowStock(ctx context.Context, studioIDs []string) ([]domainStudio.Item, error)
}

// TicketStore interface for ticket queries.
type TicketStore interface {
	GetByID(ctx context.Context, id string) (domainTicket.Ticket, error)
	List(ctx context.Context, filter ticket.ListFilter) ([]domainTicket.Ticket, error)
	Count(ctx context.Context, filter ticket.ListFilter) (int, error)
	ListMessages(ctx context.Context, ticketID string) ([]domainTicket.Message, error)
}

// AccountStore interface for account queries.
type AccountStore interface {
	List(ctx context.Context, filter account.ListFilter) ([]domainAccount.Account, error)
	CountMatching(ctx context.Context, filter account.ListFilter) (int, error)
}

// AuditStore interface for audit log queries.
type AuditStore interface {
	List(ctx context.Context, filter audit.Filter) ([]domainAudit.Event, error)
}

// OutboxStore interface for outbox queries.
type OutboxStore interface {
	List(ctx context.Context, status string, limit int) ([]domainOutbox.Entry, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}
