package fixture

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on fixtures.run_id
const currentSchemaVersion = 1

// Store persists fixtures.
type Store interface {
	// ReplaceScenario atomically replaces every fixture of scenario.
	ReplaceScenario(ctx context.Context, scenario string, fixtures []Fixture) error

	// LoadScenario returns the fixtures of scenario in capture order.
	LoadScenario(ctx context.Context, scenario string) ([]Fixture, error)
}

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open creates or opens the fixture database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// Schema creation and migrations are idempotent.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to fixture database: %w", err)
	}

	// SQLite has a single writer; concurrent scenarios share one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_fixtures_run ON fixtures(run_id)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// ReplaceScenario implements Store.
func (s *SQLiteStore) ReplaceScenario(ctx context.Context, scenario string, fixtures []Fixture) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace fixtures: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fixtures WHERE scenario = ?`, scenario); err != nil {
		return fmt.Errorf("replace fixtures: %w", err)
	}

	for i, f := range fixtures {
		if f.Scenario != scenario {
			return fmt.Errorf("replace fixtures: fixture %s does not belong to scenario %q", f.Key(), scenario)
		}
		headers, err := encodeHeader(f.Header)
		if err != nil {
			return fmt.Errorf("replace fixtures: %s: %w", f.Key(), err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO fixtures
			(scenario, variant, seq, method, path, status, headers, digest, body, body_size, run_id, captured_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			f.Scenario,
			f.Variant,
			i,
			f.Method,
			f.Path,
			f.Status,
			headers,
			f.Digest,
			compressBody(f.Body),
			len(f.Body),
			f.RunID,
			f.CapturedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("replace fixtures: %s: %w", f.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace fixtures: %w", err)
	}
	return nil
}

// LoadScenario implements Store.
func (s *SQLiteStore) LoadScenario(ctx context.Context, scenario string) ([]Fixture, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT variant, method, path, status, headers, digest, body, body_size, run_id, captured_at
		FROM fixtures
		WHERE scenario = ?
		ORDER BY seq ASC
	`, scenario)
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	defer rows.Close()

	var fixtures []Fixture
	for rows.Next() {
		f := Fixture{Scenario: scenario}
		var headers, body []byte
		var size int
		var capturedAt int64
		if err := rows.Scan(&f.Variant, &f.Method, &f.Path, &f.Status, &headers, &f.Digest, &body, &size, &f.RunID, &capturedAt); err != nil {
			return nil, fmt.Errorf("load fixtures: %w", err)
		}
		if f.Header, err = decodeHeader(headers); err != nil {
			return nil, fmt.Errorf("load fixtures: %s: %w", f.Key(), err)
		}
		if f.Body, err = decompressBody(body, size); err != nil {
			return nil, fmt.Errorf("load fixtures: %s: %w", f.Key(), err)
		}
		f.CapturedAt = time.UnixMilli(capturedAt).UTC()
		fixtures = append(fixtures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	return fixtures, nil
}

// Scenarios lists the scenarios that have fixtures.
func (s *SQLiteStore) Scenarios(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT scenario FROM fixtures ORDER BY scenario`)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list scenarios: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// verifyPragma checks a pragma value. Used by tests.
func (s *SQLiteStore) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
