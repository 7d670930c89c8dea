package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"crm/internal/adapters/storage"
	domain "crm/internal/domain/ticket"
)

const selectColumns = `SELECT id, subject, status, priority, requester_id, requester_email, requester_role,
	assignee_id, created_at, updated_at, last_message_at FROM ticket`

const upsertTicket = `INSERT INTO ticket (id, subject, status, priority, requester_id, requester_email,
		requester_role, assignee_id, created_at, updated_at, last_message_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		subject=excluded.subject, status=excluded.status, priority=excluded.priority,
		assignee_id=excluded.assignee_id, updated_at=excluded.updated_at,
		last_message_at=excluded.last_message_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new ticket store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Ticket by its ID.
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Ticket, error) {
	entity, err := scanTicket(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Ticket{}, fmt.Errorf("ticket not found: %w", err)
	}
	return entity, err
}

func ticketArgs(t domain.Ticket) []any {
	return []any{
		t.ID, t.Subject, t.Status, t.Priority, t.RequesterID, t.RequesterEmail,
		t.RequesterRole, t.AssigneeID, storage.FormatTime(t.CreatedAt),
		storage.FormatTime(t.UpdatedAt), storage.FormatTime(t.LastMessageAt),
	}
}

// Save persists a Ticket without touching its messages.
// PRE: entity has been validated
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Ticket) error {
	_, err := s.db.ExecContext(ctx, upsertTicket, ticketArgs(entity)...)
	return err
}

// SaveWithMessage upserts the ticket and inserts msg in one transaction.
// PRE: msg.TicketID == entity.ID
// POST: both rows are written or neither is
func (s *SQLiteStore) SaveWithMessage(ctx context.Context, entity domain.Ticket, msg domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertTicket, ticketArgs(entity)...); err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO ticket_message (id, ticket_id, author_id, author_role, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.TicketID, msg.AuthorID, msg.AuthorRole, msg.Body, storage.FormatTime(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return tx.Commit()
}

func conditions(filter ListFilter) *storage.Conditions {
	c := &storage.Conditions{}
	c.Eq("status", filter.Status)
	if len(filter.Statuses) > 0 {
		args := make([]any, len(filter.Statuses))
		for i, st := range filter.Statuses {
			args[i] = st
		}
		c.Add("status IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")+")", args...)
	}
	c.Eq("priority", filter.Priority)
	c.Eq("requester_id", filter.RequesterID)
	c.Eq("assignee_id", filter.AssigneeID)
	c.Search(filter.Search, "subject", "requester_email")
	return c
}

// List retrieves tickets matching the filter, most recently active first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Ticket, error) {
	c := conditions(filter)
	limit, pageArgs := storage.Page(filter.Limit, filter.Offset)
	query := selectColumns + c.Where() + " ORDER BY COALESCE(last_message_at, created_at) DESC, id" + limit

	rows, err := s.db.QueryContext(ctx, query, append(c.Args(), pageArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Ticket
	for rows.Next() {
		entity, err := scanTicket(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of tickets matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	c := conditions(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ticket"+c.Where(), c.Args()...).Scan(&n)
	return n, err
}

// ListMessages returns a ticket thread oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, ticketID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ticket_id, author_id, author_role, body, created_at FROM ticket_message
		 WHERE ticket_id = ? ORDER BY created_at, id`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		var createdAt sql.NullString
		if err := rows.Scan(&m.ID, &m.TicketID, &m.AuthorID, &m.AuthorRole, &m.Body, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = storage.ParseTime(createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// scanTicket extracts a Ticket from a row scanner function.
func scanTicket(scan func(dest ...any) error) (domain.Ticket, error) {
	var t domain.Ticket
	var createdAt, updatedAt, lastMessageAt sql.NullString
	err := scan(&t.ID, &t.Subject, &t.Status, &t.Priority, &t.RequesterID, &t.RequesterEmail,
		&t.RequesterRole, &t.AssigneeID, &createdAt, &updatedAt, &lastMessageAt)
	if err != nil {
		return domain.Ticket{}, err
	}
	t.CreatedAt = storage.ParseTime(createdAt)
	t.UpdatedAt = storage.ParseTime(updatedAt)
	t.LastMessageAt = storage.ParseTime(lastMessageAt)
	return t, nil
}
