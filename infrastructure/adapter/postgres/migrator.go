package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Migration is one numbered schema step, e.g. 001_create_users_table.up.sql
// paired with its .down.sql.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// LoadMigrations reads NNN_name.up.sql / NNN_name.down.sql pairs from fsys.
// Files without a numeric prefix are skipped.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	byVersion := map[int]*Migration{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		var kind string
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			kind = "up"
		case strings.HasSuffix(name, ".down.sql"):
			kind = "down"
		default:
			continue
		}

		version, migName, err := parseVersionAndName(strings.TrimSuffix(name, "."+kind+".sql"))
		if err != nil {
			continue
		}
		body, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, err
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: migName}
			byVersion[version] = m
		}
		if kind == "up" {
			m.Up = string(body)
		} else {
			m.Down = string(body)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func parseVersionAndName(base string) (int, string, error) {
	verStr, name, ok := strings.Cut(base, "_")
	if !ok {
		return 0, "", errors.New("invalid filename")
	}
	ver, err := strconv.Atoi(verStr)
	if err != nil {
		return 0, "", fmt.Errorf("invalid version %q: %w", verStr, err)
	}
	return ver, name, nil
}

// Migrator applies migrations and records them in schema_migrations.
// Each step runs in its own transaction together with its bookkeeping row.
type Migrator struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewMigrator(db *sql.DB, logger *logrus.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (m *Migrator) applied(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

// Up applies every pending migration in version order and returns how
// many ran.
func (m *Migrator) Up(ctx context.Context, migrations []Migration) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}
	done, err := m.applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema_migrations: %w", err)
	}

	count := 0
	for _, mig := range migrations {
		if done[mig.Version] || mig.Up == "" {
			continue
		}
		m.logger.WithFields(logrus.Fields{"version": mig.Version, "name": mig.Name}).Info("Applying migration")
		err := m.inTx(ctx, mig.Up, `INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, $3)`,
			mig.Version, mig.Name, time.Now().UTC())
		if err != nil {
			return count, fmt.Errorf("failed applying %03d_%s: %w", mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

// Down reverts up to steps applied migrations, newest first. steps <= 0
// reverts all of them.
func (m *Migrator) Down(ctx context.Context, migrations []Migration, steps int) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}
	done, err := m.applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema_migrations: %w", err)
	}

	count := 0
	for i := len(migrations) - 1; i >= 0; i-- {
		mig := migrations[i]
		if !done[mig.Version] {
			continue
		}
		if steps > 0 && count == steps {
			break
		}
		if mig.Down == "" {
			return count, fmt.Errorf("migration %03d_%s has no down step", mig.Version, mig.Name)
		}
		m.logger.WithFields(logrus.Fields{"version": mig.Version, "name": mig.Name}).Info("Reverting migration")
		if err := m.inTx(ctx, mig.Down, `DELETE FROM schema_migrations WHERE version = $1`, mig.Version); err != nil {
			return count, fmt.Errorf("failed reverting %03d_%s: %w", mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

func (m *Migrator) inTx(ctx context.Context, script, bookkeeping string, args ...interface{}) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
