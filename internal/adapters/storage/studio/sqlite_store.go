package studio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm/internal/adapters/storage"
	domain "crm/internal/domain/studio"
)

const selectColumns = `SELECT id, name, partner_account_id, city, address, latitude, longitude,
	radius_km, status, seats, created_at FROM studio`

const selectItemColumns = `SELECT id, studio_id, sku, name, quantity, min_quantity, updated_at FROM inventory_item`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new studio store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Studio by its ID.
// POST: Returns the entity or an error wrapping sql.ErrNoRows
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Studio, error) {
	entity, err := scanStudio(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Studio{}, fmt.Errorf("studio not found: %w", err)
	}
	return entity, err
}

// Save persists a Studio.
// PRE: entity has been normalized and validated
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Studio) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO studio (id, name, partner_account_id, city, address,
			latitude, longitude, radius_km, status, seats, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, partner_account_id=excluded.partner_account_id, city=excluded.city,
			address=excluded.address, latitude=excluded.latitude, longitude=excluded.longitude,
			radius_km=excluded.radius_km, status=excluded.status, seats=excluded.seats`,
		entity.ID, entity.Name, entity.PartnerAccountID, entity.City, entity.Address,
		entity.Latitude, entity.Longitude, entity.RadiusKm, entity.Status, entity.Seats,
		storage.FormatTime(entity.CreatedAt),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a Studio and, by cascade, its inventory.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM studio WHERE id = ?", id)
	return err
}

func conditions(filter ListFilter) *storage.Conditions {
	c := &storage.Conditions{}
	c.Eq("status", filter.Status)
	c.Eq("partner_account_id", filter.PartnerID)
	if filter.City != "" {
		c.Add(storage.FoldEq("city"), filter.City)
	}
	c.Search(filter.Search, "name", "city", "address")
	return c
}

// List retrieves studios matching the filter, by name unless sorted.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Studio, error) {
	c := conditions(filter)
	limit, pageArgs := storage.Page(filter.Limit, filter.Offset)
	query := selectColumns + c.Where() +
		storage.OrderBy(filter.Sort, filter.Dir, SortColumns, "name ASC, id") + limit

	rows, err := s.db.QueryContext(ctx, query, append(c.Args(), pageArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Studio
	for rows.Next() {
		entity, err := scanStudio(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// Count returns the number of studios matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	c := conditions(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM studio"+c.Where(), c.Args()...).Scan(&n)
	return n, err
}

// GetItem retrieves an inventory item by its ID.
func (s *SQLiteStore) GetItem(ctx context.Context, id string) (domain.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, selectItemColumns+" WHERE id = ?", id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, fmt.Errorf("inventory item not found: %w", err)
	}
	return item, err
}

// SaveItem persists an inventory item.
// PRE: item has been normalized and validated
// POST: a SKU already used at the same studio yields domain.ErrDuplicateSKU
func (s *SQLiteStore) SaveItem(ctx context.Context, item domain.Item) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO inventory_item (id, studio_id, sku, name, quantity, min_quantity, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sku=excluded.sku, name=excluded.name, quantity=excluded.quantity,
			min_quantity=excluded.min_quantity, updated_at=excluded.updated_at`,
		item.ID, item.StudioID, item.SKU, item.Name, item.Quantity, item.MinQuantity,
		storage.FormatTime(item.UpdatedAt),
	)
	if storage.IsUniqueViolation(err) {
		return domain.ErrDuplicateSKU
	}
	return err
}

// AdjustItemQuantity adds delta to an item's quantity in one statement, so
// concurrent adjustments never overwrite each other.
// POST: quantity stays >= 0; a delta that would cross zero yields
// domain.ErrInsufficientStock and changes nothing
func (s *SQLiteStore) AdjustItemQuantity(ctx context.Context, id string, delta int, now time.Time) (domain.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, `UPDATE inventory_item
		SET quantity = quantity + ?, updated_at = ?
		WHERE id = ? AND quantity + ? >= 0
		RETURNING id, studio_id, sku, name, quantity, min_quantity, updated_at`,
		delta, storage.FormatTime(now), id, delta).Scan)
	if !errors.Is(err, sql.ErrNoRows) {
		return item, err
	}
	if _, err := s.GetItem(ctx, id); err != nil {
		return domain.Item{}, err
	}
	return domain.Item{}, domain.ErrInsufficientStock
}

// DeleteItem removes an inventory item.
func (s *SQLiteStore) DeleteItem(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM inventory_item WHERE id = ?", id)
	return err
}

// ListItems returns a studio's inventory ordered by SKU.
func (s *SQLiteStore) ListItems(ctx context.Context, studioID string) ([]domain.Item, error) {
	return s.queryItems(ctx, selectItemColumns+" WHERE studio_id = ? ORDER BY sku", studioID)
}

// ListLowStock returns items at or below their minimum. An empty studioIDs
// slice means every studio.
func (s *SQLiteStore) ListLowStock(ctx context.Context, studioIDs []string) ([]domain.Item, error) {
	query := selectItemColumns + " WHERE quantity <= min_quantity"
	var args []any
	if len(studioIDs) > 0 {
		query += " AND studio_id IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(studioIDs)), ", ") + ")"
		for _, id := range studioIDs {
			args = append(args, id)
		}
	}
	return s.queryItems(ctx, query+" ORDER BY studio_id, sku", args...)
}

func (s *SQLiteStore) queryItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// scanStudio extracts a Studio from a row scanner function.
func scanStudio(scan func(dest ...any) error) (domain.Studio, error) {
	var st domain.Studio
	var createdAt sql.NullString
	err := scan(&st.ID, &st.Name, &st.PartnerAccountID, &st.City, &st.Address,
		&st.Latitude, &st.Longitude, &st.RadiusKm, &st.Status, &st.Seats, &createdAt)
	if err != nil {
		return domain.Studio{}, err
	}
	st.CreatedAt = storage.ParseTime(createdAt)
	return st, nil
}

// scanItem extracts an Item from a row scanner function.
func scanItem(scan func(dest ...any) error) (domain.Item, error) {
	var it domain.Item
	var updatedAt sql.NullString
	err := scan(&it.ID, &it.StudioID, &it.SKU, &it.Name, &it.Quantity, &it.MinQuantity, &updatedAt)
	if err != nil {
		return domain.Item{}, err
	}
	it.UpdatedAt = storage.ParseTime(updatedAt)
	return it, nil
}
