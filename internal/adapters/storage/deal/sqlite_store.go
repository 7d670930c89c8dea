package deal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"crm/internal/adapters/storage"
	domain "crm/internal/domain/deal"
)

const selectColumns = `SELECT id, name, email, phone, city, source, stage, value_cents,
	class_code_mod1, class_code_mod2, owner_id, notes, created_at, updated_at FROM deal`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new deal store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Deal by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Deal, error) {
	entity, err := scanDeal(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deal{}, fmt.Errorf("deal not found: %w", err)
	}
	return entity, err
}

// GetByEmail returns the most recently updated deal for email.
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Deal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE email = ? ORDER BY updated_at DESC LIMIT 1", email)
	entity, err := scanDeal(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deal{}, fmt.Errorf("deal not found: %w", err)
	}
	return entity, err
}

// Save persists a Deal to the database.
// PRE: entity has been normalized and validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Deal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO deal (id, name, email, phone, city, source, stage, value_cents,
			class_code_mod1, class_code_mod2, owner_id, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, email=excluded.email, phone=excluded.phone, city=excluded.city,
			source=excluded.source, stage=excluded.stage, value_cents=excluded.value_cents,
			class_code_mod1=excluded.class_code_mod1, class_code_mod2=excluded.class_code_mod2,
			owner_id=excluded.owner_id, notes=excluded.notes, updated_at=excluded.updated_at`,
		entity.ID, entity.Name, entity.Email, entity.Phone, entity.City, entity.Source,
		entity.Stage, entity.ValueCents, entity.ClassCodeMod1, entity.ClassCodeMod2,
		entity.OwnerID, entity.Notes,
		storage.FormatTime(entity.CreatedAt), storage.FormatTime(entity.UpdatedAt),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a Deal from the database.
// PRE: id is non-empty
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM deal WHERE id = ?", id)
	return err
}

func conditions(filter ListFilter) *storage.Conditions {
	c := &storage.Conditions{}
	c.Eq("stage", filter.Stage)
	c.Eq("owner_id", filter.OwnerID)
	if filter.City != "" {
		c.Add(storage.FoldEq("city"), strings.TrimSpace(filter.City))
	}
	if code := domain.NormalizeCode(filter.ClassCode); code != "" {
		c.Add("(class_code_mod1 = ? OR class_code_mod2 = ?)", code, code)
	}
	c.Search(filter.Search, "name", "email", "phone")
	return c
}

// List retrieves Deals matching the filter.
// POST: Returns matching entities, newest first unless a sort key is given
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Deal, error) {
	c := conditions(filter)
	limit, pageArgs := storage.Page(filter.Limit, filter.Offset)
	query := selectColumns + c.Where() +
		storage.OrderBy(filter.Sort, filter.Dir, SortColumns, "created_at DESC, id") + limit
	return s.query(ctx, query, append(c.Args(), pageArgs...)...)
}

// Count returns the number of Deals matching the filter, ignoring paging.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	c := conditions(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM deal"+c.Where(), c.Args()...).Scan(&n)
	return n, err
}

// ListByClassCode returns deals enrolled in code through either module.
func (s *SQLiteStore) ListByClassCode(ctx context.Context, code string) ([]domain.Deal, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil, nil
	}
	return s.query(ctx, selectColumns+" WHERE class_code_mod1 = ? OR class_code_mod2 = ? ORDER BY name", code, code)
}

// ListByEmail returns every deal recorded for email.
func (s *SQLiteStore) ListByEmail(ctx context.Context, email string) ([]domain.Deal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	return s.query(ctx, selectColumns+" WHERE email = ? ORDER BY created_at", email)
}

// CountByClassCodes returns, for each code, how many non-lost deals are
// keyed to it in either module.
func (s *SQLiteStore) CountByClassCodes(ctx context.Context, codes []string) (map[string]int, error) {
	counts := make(map[string]int, len(codes))
	if len(codes) == 0 {
		return counts, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(codes)), ", ")
	args := make([]any, 0, len(codes)*2+1)
	for _, c := range codes {
		counts[c] = 0
		args = append(args, c)
	}
	for _, c := range codes {
		args = append(args, c)
	}
	args = append(args, domain.StageLost)

	query := fmt.Sprintf(`SELECT code, COUNT(*) FROM (
		SELECT class_code_mod1 AS code, stage FROM deal WHERE class_code_mod1 IN (%[1]s)
		UNION ALL
		SELECT class_code_mod2 AS code, stage FROM deal WHERE class_code_mod2 IN (%[1]s)
	) WHERE stage != ? GROUP BY code`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		counts[code] = n
	}
	return counts, rows.Err()
}

// StageTotals returns count and value per stage. Stages without deals are omitted.
func (s *SQLiteStore) StageTotals(ctx context.Context) ([]StageTotal, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT stage, COUNT(*), COALESCE(SUM(value_cents), 0) FROM deal GROUP BY stage ORDER BY stage")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StageTotal
	for rows.Next() {
		var t StageTotal
		if err := rows.Scan(&t.Stage, &t.Count, &t.ValueCents); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]domain.Deal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Deal
	for rows.Next() {
		entity, err := scanDeal(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// scanDeal extracts a Deal from a row scanner function.
func scanDeal(scan func(dest ...any) error) (domain.Deal, error) {
	var d domain.Deal
	var createdAt, updatedAt sql.NullString
	err := scan(
		&d.ID, &d.Name, &d.Email, &d.Phone, &d.City, &d.Source, &d.Stage, &d.ValueCents,
		&d.ClassCodeMod1, &d.ClassCodeMod2, &d.OwnerID, &d.Notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Deal{}, err
	}
	d.CreatedAt = storage.ParseTime(createdAt)
	d.UpdatedAt = storage.ParseTime(updatedAt)
	return d, nil
}
