package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crm/internal/adapters/storage"
	domain "crm/internal/domain/audit"
)

const selectColumns = `SELECT id, timestamp, category, action, severity, actor_id, actor_email, actor_role,
	resource_type, resource_id, description, ip_address, metadata FROM audit_event`

// DefaultLimit caps List when the filter sets no limit.
const DefaultLimit = 200

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save appends an audit event.
// PRE: event is valid
func (s *SQLiteStore) Save(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (id, timestamp, category, action, severity, actor_id, actor_email, actor_role,
			resource_type, resource_id, description, ip_address, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, storage.FormatTime(e.Timestamp), string(e.Category), string(e.Action), string(e.Severity),
		e.ActorID, e.ActorEmail, e.ActorRole, e.ResourceType, e.ResourceID, e.Description,
		e.IPAddress, e.Metadata)
	return err
}

// List returns audit events newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]domain.Event, error) {
	c := &storage.Conditions{}
	c.Eq("category", string(filter.Category))
	c.Eq("action", string(filter.Action))
	c.Eq("actor_id", filter.ActorID)
	c.Eq("resource_id", filter.ResourceID)
	if !filter.From.IsZero() {
		c.Add("timestamp >= ?", storage.FormatTime(filter.From))
	}
	if !filter.To.IsZero() {
		c.Add("timestamp <= ?", storage.FormatTime(filter.To))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		selectColumns+c.Where()+" ORDER BY timestamp DESC LIMIT ?", append(c.Args(), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID retrieves a specific audit event.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, fmt.Errorf("audit event not found: %w", err)
	}
	return e, err
}

func scanEvent(scan func(dest ...any) error) (domain.Event, error) {
	var e domain.Event
	var ts sql.NullString
	err := scan(&e.ID, &ts, &e.Category, &e.Action, &e.Severity, &e.ActorID, &e.ActorEmail,
		&e.ActorRole, &e.ResourceType, &e.ResourceID, &e.Description, &e.IPAddress, &e.Metadata)
	if err != nil {
		return domain.Event{}, err
	}
	e.Timestamp = storage.ParseTime(ts)
	return e, nil
}
