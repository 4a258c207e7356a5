package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const indexSchemaVersion = 1

// Index caches the package records of local channels in a SQLite
// database so repeated resolutions avoid rescanning repodata files.
// Subdir records are refreshed when the repodata.json mtime changes.
type Index struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// OpenIndex opens or creates the channel index at <cacheDir>/index.db.
func OpenIndex(cacheDir string, logger *slog.Logger) (*Index, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	dbPath := filepath.Join(cacheDir, "index.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open channel index: %w", err)
	}

	// Set pragmas for concurrency and reliability
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	ix := &Index{conn: conn, logger: logger, dbPath: dbPath}
	if err := ix.ensureSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return ix, nil
}

// Close closes the index database.
func (ix *Index) Close() error {
	if ix.conn != nil {
		return ix.conn.Close()
	}
	return nil
}

// ensureSchema creates the schema on a fresh database and rebuilds it on
// a version mismatch. The index is a cache, so rebuilding loses nothing.
func (ix *Index) ensureSchema() error {
	version, err := ix.schemaVersion()
	if err != nil {
		return err
	}
	if version == indexSchemaVersion {
		return nil
	}
	if version != 0 {
		ix.logger.Info("Rebuilding channel index",
			"from_version", version,
			"to_version", indexSchemaVersion)
		drops := []string{
			"DROP TABLE IF EXISTS packages",
			"DROP TABLE IF EXISTS subdir_scans",
			"DROP TABLE IF EXISTS schema_version",
		}
		for _, drop := range drops {
			if _, err := ix.conn.Exec(drop); err != nil {
				return fmt.Errorf("failed to reset channel index: %w", err)
			}
		}
	}
	return ix.initializeSchema()
}

func (ix *Index) initializeSchema() error {
	return ix.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER NOT NULL
			)
		`); err != nil {
			return fmt.Errorf("failed to create schema_version table: %w", err)
		}

		if _, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS subdir_scans (
				channel TEXT NOT NULL,
				subdir TEXT NOT NULL,
				repodata_mtime INTEGER NOT NULL,
				scanned_at TEXT NOT NULL,

				PRIMARY KEY (channel, subdir)
			)
		`); err != nil {
			return fmt.Errorf("failed to create subdir_scans table: %w", err)
		}

		if _, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS packages (
				channel TEXT NOT NULL,
				subdir TEXT NOT NULL,
				filename TEXT NOT NULL,
				name TEXT NOT NULL,
				version TEXT NOT NULL,
				build TEXT NOT NULL,
				build_number INTEGER NOT NULL,
				depends_json TEXT NOT NULL,

				PRIMARY KEY (channel, subdir, filename)
			)
		`); err != nil {
			return fmt.Errorf("failed to create packages table: %w", err)
		}

		if _, err := tx.Exec(
			"CREATE INDEX IF NOT EXISTS idx_packages_name ON packages(name)",
		); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}

		if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
			return err
		}
		_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", indexSchemaVersion)
		return err
	})
}

// schemaVersion reads the stored schema version; 0 means a fresh
// database.
func (ix *Index) schemaVersion() (int, error) {
	var tableName string
	err := ix.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = ix.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

// withTx executes fn within a transaction, rolling back on error or
// panic.
func (ix *Index) withTx(fn func(*sql.Tx) error) error {
	tx, err := ix.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-throw panic after rollback
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			ix.logger.Error("failed to rollback transaction",
				"error", err.Error(),
				"rollback_error", rbErr.Error())
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Refresh rescans any subdir of a channel directory whose repodata.json
// changed since the last scan. Missing subdirs are skipped; a channel is
// not required to serve every platform.
func (ix *Index) Refresh(ctx context.Context, channel, dir string, subdirs []string) error {
	for _, subdir := range subdirs {
		repodataPath := filepath.Join(dir, subdir, "repodata.json")
		info, err := os.Stat(repodataPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", repodataPath, err)
		}
		mtime := info.ModTime().UnixNano()

		var cached int64
		err = ix.conn.QueryRowContext(ctx,
			"SELECT repodata_mtime FROM subdir_scans WHERE channel = ? AND subdir = ?",
			channel, subdir).Scan(&cached)
		if err == nil && cached == mtime {
			continue
		}
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to read scan state: %w", err)
		}

		records, err := readRepodata(repodataPath, channel, subdir)
		if err != nil {
			return err
		}
		if err := ix.storeRecords(channel, subdir, mtime, records); err != nil {
			return err
		}
		ix.logger.Debug("Refreshed channel subdir",
			"channel", channel,
			"subdir", subdir,
			"packages", len(records))
	}
	return nil
}

// storeRecords replaces the cached records of one channel subdir.
func (ix *Index) storeRecords(channel, subdir string, mtime int64, records []PackageRecord) error {
	return ix.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"DELETE FROM packages WHERE channel = ? AND subdir = ?",
			channel, subdir,
		); err != nil {
			return fmt.Errorf("failed to clear stale records: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO packages (channel, subdir, filename, name, version, build, build_number, depends_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, rec := range records {
			dependsJSON, err := json.Marshal(rec.Depends)
			if err != nil {
				return fmt.Errorf("failed to encode depends: %w", err)
			}
			if _, err := stmt.Exec(channel, subdir, rec.Filename, rec.Name,
				rec.Version, rec.Build, rec.BuildNumber, string(dependsJSON)); err != nil {
				return fmt.Errorf("failed to insert package record: %w", err)
			}
		}

		if _, err := tx.Exec(`
			INSERT INTO subdir_scans (channel, subdir, repodata_mtime, scanned_at)
			VALUES (?, ?, ?, datetime('now'))
			ON CONFLICT(channel, subdir) DO UPDATE SET
				repodata_mtime = excluded.repodata_mtime,
				scanned_at = excluded.scanned_at
		`, channel, subdir, mtime); err != nil {
			return fmt.Errorf("failed to record scan: %w", err)
		}
		return nil
	})
}

// Candidates returns the cached records of one package name within a
// channel, restricted to the given subdirs.
func (ix *Index) Candidates(ctx context.Context, channel, name string, subdirs []string) ([]PackageRecord, error) {
	if len(subdirs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(subdirs)), ",")
	args := make([]interface{}, 0, len(subdirs)+2)
	args = append(args, channel, name)
	for _, subdir := range subdirs {
		args = append(args, subdir)
	}

	query := fmt.Sprintf(`
		SELECT subdir, filename, name, version, build, build_number, depends_json
		FROM packages
		WHERE channel = ? AND name = ? AND subdir IN (%s)
		ORDER BY subdir, filename
	`, placeholders)

	rows, err := ix.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PackageRecord
	for rows.Next() {
		rec := PackageRecord{Channel: channel}
		var dependsJSON string
		if err := rows.Scan(&rec.Subdir, &rec.Filename, &rec.Name,
			&rec.Version, &rec.Build, &rec.BuildNumber, &dependsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(dependsJSON), &rec.Depends); err != nil {
			return nil, fmt.Errorf("failed to decode depends: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
