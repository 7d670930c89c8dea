package instructor

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"crm/internal/adapters/storage"
	domain "crm/internal/domain/instructor"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db, ":memory:"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLiteStore(db)
}

// TestSQLiteStore_CRUD covers save, lookups, filters and delete.
func TestSQLiteStore_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	hired := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	list := []domain.Instructor{
		{ID: "i1", AccountID: "acc1", Name: "Beatriz", Email: "bia@x.test", City: "Santos", SalaryText: "R$ 4.000,00", SalaryCents: 400000, HiredAt: hired, Status: domain.StatusActive},
		{ID: "i2", Name: "André", City: "Santos", Status: domain.StatusInactive},
		{ID: "i3", Name: "Carlos", Email: "carlos@x.test", City: "Campinas", Status: domain.StatusActive},
	}
	for _, in := range list {
		if err := s.Save(ctx, in); err != nil {
			t.Fatalf("Save %s: %v", in.ID, err)
		}
	}

	got, err := s.GetByID(ctx, "i1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.SalaryCents != 400000 || got.SalaryText != "R$ 4.000,00" || !got.HiredAt.Equal(hired) {
		t.Errorf("GetByID = %+v", got)
	}
	noHire, _ := s.GetByID(ctx, "i2")
	if !noHire.HiredAt.IsZero() {
		t.Errorf("HiredAt should be zero, got %v", noHire.HiredAt)
	}

	byAcc, err := s.GetByAccountID(ctx, "acc1")
	if err != nil || byAcc.ID != "i1" {
		t.Errorf("GetByAccountID = %s, %v", byAcc.ID, err)
	}
	if _, err := s.GetByAccountID(ctx, ""); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("empty account id = %v", err)
	}

	santos, _ := s.List(ctx, ListFilter{City: "santos"})
	if len(santos) != 2 || santos[0].ID != "i2" {
		t.Errorf("List santos = %+v", santos)
	}
	active, _ := s.Count(ctx, ListFilter{Status: domain.StatusActive})
	if active != 2 {
		t.Errorf("active count = %d", active)
	}
	search, _ := s.List(ctx, ListFilter{Search: "carlos@"})
	if len(search) != 1 || search[0].ID != "i3" {
		t.Errorf("search = %+v", search)
	}
	bySalary, _ := s.List(ctx, ListFilter{Sort: "salary", Dir: "desc", Limit: 1})
	if len(bySalary) != 1 || bySalary[0].ID != "i1" {
		t.Errorf("top salary = %+v", bySalary)
	}

	if err := s.Delete(ctx, "i3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetByID(ctx, "i3"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("after delete = %v", err)
	}
}
