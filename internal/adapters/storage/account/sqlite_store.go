package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"crm/internal/adapters/storage"
	domain "crm/internal/domain/account"
)

const selectColumns = "SELECT id, email, password_hash, role, status, created_at, failed_logins, locked_until, password_change_required FROM account"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Account by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	entity, err := scanAccount(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// GetByEmail retrieves an Account by email, case-insensitively.
// PRE: email is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	entity, err := scanAccount(s.db.QueryRowContext(ctx, selectColumns+" WHERE email = ?", email).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account not found: %w", err)
	}
	return entity, err
}

// Save persists an Account to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fields := []string{"id", "email", "password_hash", "role", "status", "created_at", "failed_logins", "locked_until", "password_change_required"}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(fields)), ", ")
	updates := []string{
		"email=excluded.email",
		"password_hash=excluded.password_hash",
		"role=excluded.role",
		"status=excluded.status",
		"failed_logins=excluded.failed_logins",
		"locked_until=excluded.locked_until",
		"password_change_required=excluded.password_change_required",
	}
	query := fmt.Sprintf(
		"INSERT INTO account (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		placeholders,
		strings.Join(updates, ", "),
	)

	status := entity.Status
	if status == "" {
		status = domain.StatusActive
	}
	_, err = tx.ExecContext(ctx, query,
		entity.ID,
		strings.ToLower(entity.Email),
		entity.PasswordHash,
		entity.Role,
		status,
		storage.FormatTime(entity.CreatedAt),
		entity.FailedLogins,
		storage.FormatTime(entity.LockedUntil),
		entity.PasswordChangeRequired,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes an Account from the database.
// PRE: id is non-empty
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM account WHERE id = ?", id)
	return err
}

func conditions(filter ListFilter) *storage.Conditions {
	c := &storage.Conditions{}
	c.Eq("role", filter.Role)
	c.Eq("status", filter.Status)
	c.Search(filter.Search, "email")
	return c
}

// List retrieves Accounts matching the filter, newest first unless a sort
// key is given.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Account, error) {
	c := conditions(filter)
	limit, pageArgs := storage.Page(filter.Limit, filter.Offset)
	query := selectColumns + c.Where() +
		storage.OrderBy(filter.Sort, filter.Dir, SortColumns, "created_at DESC, id") + limit

	rows, err := s.db.QueryContext(ctx, query, append(c.Args(), pageArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Account
	for rows.Next() {
		entity, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the total number of accounts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	return s.CountMatching(ctx, ListFilter{})
}

// CountMatching returns the number of accounts matching the filter, ignoring
// paging.
func (s *SQLiteStore) CountMatching(ctx context.Context, filter ListFilter) (int, error) {
	c := conditions(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM account"+c.Where(), c.Args()...).Scan(&n)
	return n, err
}

// scanAccount extracts an Account from a row scanner function.
func scanAccount(scan func(dest ...any) error) (domain.Account, error) {
	var entity domain.Account
	var createdAt, lockedUntil sql.NullString
	err := scan(
		&entity.ID,
		&entity.Email,
		&entity.PasswordHash,
		&entity.Role,
		&entity.Status,
		&createdAt,
		&entity.FailedLogins,
		&lockedUntil,
		&entity.PasswordChangeRequired,
	)
	if err != nil {
		return domain.Account{}, err
	}
	entity.CreatedAt = storage.ParseTime(createdAt)
	entity.LockedUntil = storage.ParseTime(lockedUntil)
	return entity, nil
}
