package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// TimeFormat is how every timestamp column is stored. Fixed width keeps
// string comparison in SQL chronological.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// migration is one forward-only schema step.
type migration struct {
	version     int
	description string
	apply       func(tx *sql.Tx) error
}

// migrations is the ordered schema history. Append only.
var migrations = []migration{
	{1, "baseline schema", migrateBaseline},
	{2, "ticket activity indexes", migrateTicketIndexes},
}

// LatestSchemaVersion returns the version the chain ends at.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Open opens the SQLite database at path with the pragmas every store expects.
// Pragmas go in the DSN so each pooled connection gets them.
// PRE: path is a file path or ":memory:"
// POST: Returns an open pool; callers must Close it
func Open(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// each pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// MigrateDB brings the schema up to LatestSchemaVersion.
// PRE: db is a valid database connection
// POST: every pending migration applied in its own transaction; WAL enabled
// for file databases
func MigrateDB(db *sql.DB, path string) error {
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		slog.Info("migration_event", "version", m.version, "description", m.description)
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.apply(tx); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)",
		m.version, m.description, time.Now().UTC().Format(TimeFormat),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration, or 0 on a fresh database.
func SchemaVersion(db *sql.DB) (int, error) {
	var tables int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tables); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}
	var v sql.NullInt64
	err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

func migrateBaseline(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		password_change_required INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE deal (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		stage TEXT NOT NULL,
		value_cents INTEGER NOT NULL DEFAULT 0,
		class_code_mod1 TEXT NOT NULL DEFAULT '',
		class_code_mod2 TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX idx_deal_stage ON deal(stage);
	CREATE INDEX idx_deal_email ON deal(email);
	CREATE INDEX idx_deal_mod1 ON deal(class_code_mod1);
	CREATE INDEX idx_deal_mod2 ON deal(class_code_mod2);

	CREATE TABLE studio (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		partner_account_id TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		latitude REAL NOT NULL DEFAULT 0,
		longitude REAL NOT NULL DEFAULT 0,
		radius_km REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		seats INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE inventory_item (
		id TEXT PRIMARY KEY,
		studio_id TEXT NOT NULL,
		sku TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0,
		min_quantity INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		UNIQUE (studio_id, sku),
		FOREIGN KEY (studio_id) REFERENCES studio(id) ON DELETE CASCADE
	);

	CREATE TABLE instructor (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		salary_text TEXT NOT NULL DEFAULT '',
		salary_cents INTEGER NOT NULL DEFAULT 0,
		hired_at TEXT,
		status TEXT NOT NULL
	);

	CREATE TABLE turma (
		id TEXT PRIMARY KEY,
		course TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		studio_id TEXT NOT NULL DEFAULT '',
		instructor_id TEXT NOT NULL DEFAULT '',
		mod1_code TEXT NOT NULL UNIQUE,
		mod1_date TEXT NOT NULL,
		mod2_code TEXT,
		mod2_date TEXT,
		capacity INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX idx_turma_mod2 ON turma(mod2_code) WHERE mod2_code IS NOT NULL;

	CREATE TABLE ticket (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		requester_id TEXT NOT NULL,
		requester_email TEXT NOT NULL DEFAULT '',
		requester_role TEXT NOT NULL DEFAULT '',
		assignee_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		last_message_at TEXT
	);

	CREATE TABLE ticket_message (
		id TEXT PRIMARY KEY,
		ticket_id TEXT NOT NULL,
		author_id TEXT NOT NULL,
		author_role TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (ticket_id) REFERENCES ticket(id) ON DELETE CASCADE
	);

	CREATE TABLE audit_event (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		severity TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_email TEXT NOT NULL DEFAULT '',
		actor_role TEXT NOT NULL DEFAULT '',
		resource_type TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE outbox_entry (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		last_attempted_at TEXT,
		created_at TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	);
	`)
	return err
}

func migrateTicketIndexes(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE INDEX idx_ticket_requester ON ticket(requester_id);
	CREATE INDEX idx_ticket_status ON ticket(status);
	CREATE INDEX idx_ticket_message_ticket ON ticket_message(ticket_id, created_at);
	CREATE INDEX idx_outbox_status ON outbox_entry(status);
	`)
	return err
}

// FormatTime renders t for storage; the zero time becomes NULL.
func FormatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(TimeFormat)
}

// ParseTime reads a stored timestamp. NULL or unparseable values yield the
// zero time.
func ParseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	for _, f := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(f, s.String); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NullString maps "" to NULL for optional unique columns.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
