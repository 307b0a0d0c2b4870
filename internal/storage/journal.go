/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kastom/internal/domain"
	applog "kastom/internal/log"
	"kastom/internal/version"
	"log/slog"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// JournalDirName stores all per-dashboard ephemeral/journal data under the dashboard root.
	JournalDirName  = ".kst"
	JournalFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded journal.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// JournalPath returns the full path to the dashboard's embedded journal database file.
func JournalPath(root string) string {
	return filepath.Join(root, JournalDirName, JournalFileName)
}

// InitOrOpenJournal ensures that the per-dashboard SQLite journal exists at .kst/index.sqlite,
// opens the database, enables WAL mode, and ensures the meta/version tables exist.
// The returned *sql.DB is ready for use. Callers may close it when no longer needed.
func InitOrOpenJournal(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "journal_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("dashboard root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, JournalDirName), 0o755); err != nil {
		l.Error("create .kst dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .kst dir: %w", err)
	}

	path := JournalPath(root)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Set reasonable connection pool limits for embedded usage.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureJournalSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure journal schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("journal ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	// Seed or update single-row version info
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade; just continue with the newer schema
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// Add a covering index for per-widget history queries
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_payload_log_widget_ts ON payload_log(widget_id, ts);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
		default:
			// Unknown future step; break
		}
		cur = next
	}
	return nil
}

// ensureJournalSchema creates core journal tables if they do not exist.
func ensureJournalSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Widget catalog mirrored from the manifest; used for title lookups.
		`CREATE TABLE IF NOT EXISTS widgets (
			widget_id   TEXT    PRIMARY KEY,
			title       TEXT    NOT NULL,
			stack_order INTEGER NOT NULL,
			created_at  INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_widgets_title ON widgets(title);`,

		// Payload journal: every accepted widget state message, newest last.
		`CREATE TABLE IF NOT EXISTS payload_log (
			id        INTEGER PRIMARY KEY,
			widget_id TEXT    NOT NULL,
			ts        TEXT    NOT NULL,
			payload   BLOB    NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure journal schema: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildJournal checks for corruption or missing schema and rebuilds the journal if needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildJournal(ctx context.Context, root string, d domain.Dashboard) (bool, error) {
	path := JournalPath(root)
	db, err := InitOrOpenJournal(root)
	if err != nil {
		backupJournalFile(path)
		_ = os.Remove(path)
		if rbErr := RebuildJournal(ctx, root, d); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	defer db.Close()
	needs := false
	// quick_check for corruption
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	// Check the core table is readable
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM widgets LIMIT 1;`); err != nil {
			needs = true
		}
	}
	if !needs {
		return false, nil
	}
	backupJournalFile(path)
	_ = os.Remove(path)
	if err := RebuildJournal(ctx, root, d); err != nil {
		return false, err
	}
	return true, nil
}

// backupJournalFile copies the current journal file into a timestamped backup in .kst/backups.
func backupJournalFile(journalPath string) {
	bdir := filepath.Join(filepath.Dir(journalPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(journalPath), stamp))
	if data, err := os.ReadFile(journalPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// RebuildJournal drops and recreates the widget catalog and rebuilds it from the manifest.
// It preserves meta/version tables and the payload log; the catalog is derived from
// dashboard.json and can be regenerated at any time.
func RebuildJournal(ctx context.Context, root string, d domain.Dashboard) error {
	db, err := InitOrOpenJournal(root)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS widgets;"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("drop schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureJournalSchema(ctx, db); err != nil {
		return err
	}
	return syncWidgetCatalog(ctx, db, d)
}

// SyncJournal mirrors the manifest's widget list into the journal catalog.
func SyncJournal(ctx context.Context, root string, d domain.Dashboard) error {
	db, err := InitOrOpenJournal(root)
	if err != nil {
		return err
	}
	defer db.Close()
	return syncWidgetCatalog(ctx, db, d)
}

// syncWidgetCatalog replaces the widgets table content from the given dashboard manifest.
func syncWidgetCatalog(ctx context.Context, db *sql.DB, d domain.Dashboard) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM widgets;"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear widgets: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, "INSERT INTO widgets(widget_id, title, stack_order, created_at) VALUES(?,?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, w := range d.Widgets {
		if _, err := ins.ExecContext(ctx, w.ID, w.Title, w.StackOrder, w.CreatedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert widget: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SearchWidgetTitles returns widget ids whose title contains the query, case-insensitive,
// ordered by stack order descending (topmost first).
func SearchWidgetTitles(ctx context.Context, root string, query string) ([]string, error) {
	db, err := InitOrOpenJournal(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx,
		`SELECT widget_id FROM widgets WHERE title LIKE '%' || ? || '%' COLLATE NOCASE ORDER BY stack_order DESC`,
		strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
