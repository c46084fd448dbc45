// Package catalog tracks which beatmap sets have already been converted,
// so repeat runs over the same library only process what changed.
package catalog

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite catalog database.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the catalog at dataDir and runs pending migrations.
func Open(dataDir string, logger *slog.Logger) (*DB, error) {
	dbPath := filepath.Join(dataDir, "stepmix.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	store := &DB{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// migrate runs all pending migrations.
func (d *DB) migrate() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	row := d.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}
		d.logger.Info("applying migration", "version", version, "file", entry.Name())
		if _, err := d.db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", entry.Name(), err)
		}
		if _, err := d.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Conversion is one converted beatmap set.
type Conversion struct {
	ID          int64
	ContentHash string
	SourceDir   string
	OutputPath  string
	ChartCount  int64
	ConvertedAt time.Time
}

// RecordConversion inserts or refreshes a conversion by content hash.
func (d *DB) RecordConversion(contentHash, sourceDir, outputPath string, chartCount int) error {
	_, err := d.db.Exec(`
		INSERT INTO conversions (content_hash, source_dir, output_path, chart_count, converted_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(content_hash) DO UPDATE SET
			source_dir = excluded.source_dir,
			output_path = excluded.output_path,
			chart_count = excluded.chart_count,
			converted_at = CURRENT_TIMESTAMP
	`, contentHash, sourceDir, outputPath, chartCount)
	return err
}

// IsConverted reports whether a set with this content hash was converted.
func (d *DB) IsConverted(contentHash string) (bool, error) {
	var n int
	row := d.db.QueryRow("SELECT COUNT(*) FROM conversions WHERE content_hash = ?", contentHash)
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetConversion retrieves a conversion by content hash, or nil when the
// hash is unknown.
func (d *DB) GetConversion(contentHash string) (*Conversion, error) {
	c := &Conversion{}
	row := d.db.QueryRow(`
		SELECT id, content_hash, source_dir, output_path, chart_count, converted_at
		FROM conversions WHERE content_hash = ?
	`, contentHash)
	var convertedAt sql.NullTime
	err := row.Scan(&c.ID, &c.ContentHash, &c.SourceDir, &c.OutputPath, &c.ChartCount, &convertedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if convertedAt.Valid {
		c.ConvertedAt = convertedAt.Time
	}
	return c, nil
}
