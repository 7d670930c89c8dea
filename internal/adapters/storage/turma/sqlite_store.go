package turma

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"crm/internal/adapters/storage"
	domain "crm/internal/domain/turma"
)

const selectColumns = `SELECT id, course, city, studio_id, instructor_id, mod1_code, mod1_date,
	mod2_code, mod2_date, capacity, status, created_at FROM turma`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new class store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Turma by its ID.
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Turma, error) {
	entity, err := scanTurma(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Turma{}, fmt.Errorf("class not found: %w", err)
	}
	return entity, err
}

// GetByCode retrieves the class owning code in either module.
func (s *SQLiteStore) GetByCode(ctx context.Context, code string) (domain.Turma, error) {
	code = domain.NormalizeCode(code)
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE mod1_code = ? OR mod2_code = ?", code, code)
	entity, err := scanTurma(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Turma{}, fmt.Errorf("class not found: %w", err)
	}
	return entity, err
}

// Save persists a Turma.
// PRE: entity has been normalized and validated
// POST: Entity is persisted; a reused module code yields domain.ErrDuplicateCode
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Turma) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO turma (id, course, city, studio_id, instructor_id,
			mod1_code, mod1_date, mod2_code, mod2_date, capacity, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			course=excluded.course, city=excluded.city, studio_id=excluded.studio_id,
			instructor_id=excluded.instructor_id, mod1_code=excluded.mod1_code,
			mod1_date=excluded.mod1_date, mod2_code=excluded.mod2_code,
			mod2_date=excluded.mod2_date, capacity=excluded.capacity, status=excluded.status`,
		entity.ID, entity.Course, entity.City, entity.StudioID, entity.InstructorID,
		entity.Mod1Code, storage.FormatTime(entity.Mod1Date),
		storage.NullString(entity.Mod2Code), storage.FormatTime(entity.Mod2Date),
		entity.Capacity, entity.Status, storage.FormatTime(entity.CreatedAt),
	)
	if storage.IsUniqueViolation(err) {
		return domain.ErrDuplicateCode
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a Turma.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM turma WHERE id = ?", id)
	return err
}

func conditions(filter ListFilter) *storage.Conditions {
	c := &storage.Conditions{}
	c.Eq("status", filter.Status)
	c.Eq("studio_id", filter.StudioID)
	c.Eq("instructor_id", filter.InstructorID)
	if filter.City != "" {
		c.Add(storage.FoldEq("city"), filter.City)
	}
	if !filter.From.IsZero() {
		c.Add("COALESCE(mod2_date, mod1_date) >= ?", storage.FormatTime(filter.From))
	}
	c.Search(filter.Search, "course", "city", "mod1_code", "COALESCE(mod2_code, '')")
	return c
}

// List retrieves classes matching the filter, soonest first by default.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Turma, error) {
	c := conditions(filter)
	limit, pageArgs := storage.Page(filter.Limit, filter.Offset)
	query := selectColumns + c.Where() +
		storage.OrderBy(filter.Sort, filter.Dir, SortColumns, "mod1_date ASC, id") + limit

	rows, err := s.db.QueryContext(ctx, query, append(c.Args(), pageArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Turma
	for rows.Next() {
		entity, err := scanTurma(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of classes matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	c := conditions(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM turma"+c.Where(), c.Args()...).Scan(&n)
	return n, err
}

// CodeInUse reports whether code is used by any module of a class other than excludeID.
func (s *SQLiteStore) CodeInUse(ctx context.Context, code, excludeID string) (bool, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return false, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM turma WHERE (mod1_code = ? OR mod2_code = ?) AND id != ?",
		code, code, excludeID).Scan(&n)
	return n > 0, err
}

// ModulesBetween expands planned and open classes into modules dated within
// the filter window, ordered by date.
func (s *SQLiteStore) ModulesBetween(ctx context.Context, filter ModuleFilter) ([]domain.Module, error) {
	c := &storage.Conditions{}
	c.Add("status IN (?, ?)", domain.StatusPlanned, domain.StatusOpen)
	c.Eq("studio_id", filter.StudioID)
	c.Eq("instructor_id", filter.InstructorID)
	if !filter.From.IsZero() {
		c.Add("COALESCE(mod2_date, mod1_date) >= ?", storage.FormatTime(filter.From))
	}
	if !filter.To.IsZero() {
		c.Add("mod1_date < ?", storage.FormatTime(filter.To))
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+c.Where(), c.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []domain.Module
	for rows.Next() {
		t, err := scanTurma(rows.Scan)
		if err != nil {
			return nil, err
		}
		for _, m := range t.Modules() {
			if !filter.From.IsZero() && m.Date.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && !m.Date.Before(filter.To) {
				continue
			}
			mods = append(mods, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(mods, func(i, j int) bool {
		if !mods[i].Date.Equal(mods[j].Date) {
			return mods[i].Date.Before(mods[j].Date)
		}
		return mods[i].Code < mods[j].Code
	})
	return mods, nil
}

// scanTurma extracts a Turma from a row scanner function.
func scanTurma(scan func(dest ...any) error) (domain.Turma, error) {
	var t domain.Turma
	var mod1Date, mod2Code, mod2Date, createdAt sql.NullString
	err := scan(
		&t.ID, &t.Course, &t.City, &t.StudioID, &t.InstructorID,
		&t.Mod1Code, &mod1Date, &mod2Code, &mod2Date, &t.Capacity, &t.Status, &createdAt,
	)
	if err != nil {
		return domain.Turma{}, err
	}
	t.Mod1Date = storage.ParseTime(mod1Date)
	t.Mod2Code = mod2Code.String
	t.Mod2Date = storage.ParseTime(mod2Date)
	t.CreatedAt = storage.ParseTime(createdAt)
	return t, nil
}
