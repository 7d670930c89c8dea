package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	web "crm/internal/adapters/http"
	"crm/internal/adapters/storage"
	"crm/internal/application/orchestrators"
)

// openDB opens and migrates the configured database.
func openDB() (*sql.DB, error) {
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("db_event", "event", "ready", "path", cfg.DBPath, "schema", storage.LatestSchemaVersion())
	return db, nil
}

// seedAdmin creates the configured admin when the database has no accounts.
func seedAdmin(ctx context.Context, stores *web.Stores) error {
	return orchestrators.ExecuteSeedAdmin(ctx, orchestrators.CreateAccountDeps{
		AccountStore: stores.AccountStore,
		AuditStore:   stores.AuditStore,
	}, cfg.Admin.Email, cfg.Admin.Password)
}
