// Package index provides the SQLite-backed store of notes, tags, links, citations and images.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// BackupSuffix is appended to the database path to name its backup copy.
const BackupSuffix = ".bak"

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the SQLite database at path and applies pending migrations.
func Open(path string) (*DB, error) {
	conn, err := openConn(path)
	if err != nil {
		return nil, err
	}
	db := &DB{conn: conn, path: path}
	if err := db.Migrate(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func openConn(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	// One connection: a batch transaction is the only writer and
	// PRAGMA foreign_keys must hold on every statement.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	return conn, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// BackupPath returns the sibling path used by Backup and Restore.
func (db *DB) BackupPath() string {
	return db.path + BackupSuffix
}

// Backup writes a byte-for-byte copy of the database file next to it.
func (db *DB) Backup(ctx context.Context) (string, error) {
	if _, err := db.conn.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return "", fmt.Errorf("index: checkpoint: %w", err)
	}
	dst := db.BackupPath()
	if err := copyFile(db.path, dst); err != nil {
		return "", fmt.Errorf("index: backup: %w", err)
	}
	return dst, nil
}

// Restore closes the live handle, replaces the database file with its backup and re-opens it.
func (db *DB) Restore(ctx context.Context) error {
	src := db.BackupPath()
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("index: restore: %w", err)
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("index: close before restore: %w", err)
	}
	_ = os.Remove(db.path + "-wal")
	_ = os.Remove(db.path + "-shm")
	if err := copyFile(src, db.path); err != nil {
		return fmt.Errorf("index: restore: %w", err)
	}
	conn, err := openConn(db.path)
	if err != nil {
		return err
	}
	db.conn = conn
	return db.Migrate(ctx)
}

// RemoveBackup deletes the backup file if it exists.
func (db *DB) RemoveBackup() error {
	if err := os.Remove(db.BackupPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("index: remove backup: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
