// Package store persists hunts, roads, riddles and the attempt ledger in
// sqlite. One connection, synchronous writes: the check-then-append units the
// engine runs inside InTx stay serialized without row locking.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"trailhunt.dev/internal/hunt"
)

type DB struct {
	queries
	db *sql.DB
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{queries: queries{x: db}, db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// InTx runs fn against a view whose calls all land in one transaction. The
// single-connection pool serializes transactions, so a check-then-append unit
// observes no concurrent writes.
func (d *DB) InTx(ctx context.Context, fn func(tx hunt.Store) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(txStore{queries{x: tx}}); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore is the in-transaction view. Nested InTx joins the open transaction
// rather than starting another.
type txStore struct {
	queries
}

func (t txStore) InTx(ctx context.Context, fn func(tx hunt.Store) error) error {
	return fn(t)
}

func initPragmas(db *sql.DB) error {
	// WAL keeps readers off the writer's back; the ledger is append-mostly.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hunts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			group_mode INTEGER NOT NULL DEFAULT 0,
			play_without_moving INTEGER NOT NULL DEFAULT 0,
			time_created INTEGER NOT NULL,
			time_modified INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS roads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hunt_id INTEGER NOT NULL REFERENCES hunts(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			group_id INTEGER NOT NULL DEFAULT 0,
			grouping_id INTEGER NOT NULL DEFAULT 0,
			validated INTEGER NOT NULL DEFAULT 0,
			time_created INTEGER NOT NULL,
			time_modified INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_roads_hunt ON roads(hunt_id);`,
		`CREATE TABLE IF NOT EXISTS riddles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			road_id INTEGER NOT NULL REFERENCES roads(id) ON DELETE CASCADE,
			number INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			question_text TEXT NOT NULL DEFAULT '',
			activity_to_end INTEGER NOT NULL DEFAULT 0,
			geometry BLOB NOT NULL,
			time_created INTEGER NOT NULL,
			time_modified INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_riddles_road_number ON riddles(road_id, number);`,
		`CREATE TABLE IF NOT EXISTS answers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			riddle_id INTEGER NOT NULL REFERENCES riddles(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			correct INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_answers_riddle ON answers(riddle_id);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			riddle_id INTEGER NOT NULL REFERENCES riddles(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL,
			group_id INTEGER NOT NULL DEFAULT 0,
			type TEXT NOT NULL,
			success INTEGER NOT NULL DEFAULT 0,
			penalty INTEGER NOT NULL DEFAULT 0,
			question_solved INTEGER NOT NULL DEFAULT 0,
			completion_solved INTEGER NOT NULL DEFAULT 0,
			geometry_solved INTEGER NOT NULL DEFAULT 0,
			location BLOB,
			time_created INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_riddle_time ON attempts(riddle_id, time_created);`,
		`CREATE TABLE IF NOT EXISTS edit_locks (
			hunt_id INTEGER PRIMARY KEY REFERENCES hunts(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL,
			lock_id TEXT NOT NULL,
			issued_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS group_members (
			group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL,
			PRIMARY KEY (group_id, user_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);`,
		`CREATE TABLE IF NOT EXISTS grouping_groups (
			grouping_id INTEGER NOT NULL,
			group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			PRIMARY KEY (grouping_id, group_id)
		);`,
		`CREATE TABLE IF NOT EXISTS completions (
			activity_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			completed_at INTEGER NOT NULL,
			PRIMARY KEY (activity_id, user_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
