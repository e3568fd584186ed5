package index

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrationNameRe = regexp.MustCompile(`^(\d+)\..+\.sql$`)

// Migration is a schema script labeled with its target user_version.
type Migration struct {
	Version int
	Source  string
}

// Migrations returns the embedded migration scripts sorted by version.
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("index: read migrations: %w", err)
	}
	var out []Migration
	for _, e := range entries {
		m := migrationNameRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		src, err := fs.ReadFile(migrationFS, "migrations/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("index: read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Source: string(src)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// UserVersion returns the schema version stored in the database header.
func (db *DB) UserVersion(ctx context.Context) (int, error) {
	var v int
	if err := db.conn.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("index: user_version: %w", err)
	}
	return v, nil
}

// Migrate applies every migration whose version exceeds the stored user_version.
// Pending scripts share one transaction, so the first failing script stops the
// run and rolls back the ones applied before it; user_version stays unchanged.
func (db *DB) Migrate(ctx context.Context) error {
	migrations, err := Migrations()
	if err != nil {
		return err
	}
	current, err := db.UserVersion(ctx)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin migration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.Source); err != nil {
			return fmt.Errorf("index: migration %d: %w", m.Version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit migrations: %w", err)
	}
	return nil
}
