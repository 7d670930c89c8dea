package instructor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crm/internal/adapters/storage"
	domain "crm/internal/domain/instructor"
)

const selectColumns = `SELECT id, account_id, name, email, phone, city, salary_text, salary_cents,
	hired_at, status FROM instructor`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new instructor store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an Instructor by its ID.
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Instructor, error) {
	return s.getOne(ctx, " WHERE id = ?", id)
}

// GetByAccountID retrieves the Instructor linked to a portal account.
func (s *SQLiteStore) GetByAccountID(ctx context.Context, accountID string) (domain.Instructor, error) {
	if accountID == "" {
		return domain.Instructor{}, fmt.Errorf("instructor not found: %w", sql.ErrNoRows)
	}
	return s.getOne(ctx, " WHERE account_id = ?", accountID)
}

func (s *SQLiteStore) getOne(ctx context.Context, where string, arg any) (domain.Instructor, error) {
	entity, err := scanInstructor(s.db.QueryRowContext(ctx, selectColumns+where, arg).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Instructor{}, fmt.Errorf("instructor not found: %w", err)
	}
	return entity, err
}

// Save persists an Instructor.
// PRE: entity has been normalized and validated
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Instructor) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO instructor (id, account_id, name, email, phone, city,
			salary_text, salary_cents, hired_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account_id=excluded.account_id, name=excluded.name, email=excluded.email,
			phone=excluded.phone, city=excluded.city, salary_text=excluded.salary_text,
			salary_cents=excluded.salary_cents, hired_at=excluded.hired_at, status=excluded.status`,
		entity.ID, entity.AccountID, entity.Name, entity.Email, entity.Phone, entity.City,
		entity.SalaryText, entity.SalaryCents, storage.FormatTime(entity.HiredAt), entity.Status,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes an Instructor.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM instructor WHERE id = ?", id)
	return err
}

func conditions(filter ListFilter) *storage.Conditions {
	c := &storage.Conditions{}
	c.Eq("status", filter.Status)
	if filter.City != "" {
		c.Add(storage.FoldEq("city"), filter.City)
	}
	c.Search(filter.Search, "name", "email", "city")
	return c
}

// List retrieves instructors matching the filter, by name unless sorted.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Instructor, error) {
	c := conditions(filter)
	limit, pageArgs := storage.Page(filter.Limit, filter.Offset)
	query := selectColumns + c.Where() +
		storage.OrderBy(filter.Sort, filter.Dir, SortColumns, "name ASC, id") + limit

	rows, err := s.db.QueryContext(ctx, query, append(c.Args(), pageArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Instructor
	for rows.Next() {
		entity, err := scanInstructor(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of instructors matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	c := conditions(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM instructor"+c.Where(), c.Args()...).Scan(&n)
	return n, err
}

// scanInstructor extracts an Instructor from a row scanner function.
func scanInstructor(scan func(dest ...any) error) (domain.Instructor, error) {
	var i domain.Instructor
	var hiredAt sql.NullString
	err := scan(&i.ID, &i.AccountID, &i.Name, &i.Email, &i.Phone, &i.City,
		&i.SalaryText, &i.SalaryCents, &hiredAt, &i.Status)
	if err != nil {
		return domain.Instructor{}, err
	}
	i.HiredAt = storage.ParseTime(hiredAt)
	return i, nil
}
