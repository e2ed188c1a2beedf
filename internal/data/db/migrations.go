package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migration is one schema version with the SQL to apply and revert it.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationStatus reports whether a known migration has been applied.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// migrationFile matches "NNNN_name.up.sql" and "NNNN_name.down.sql".
var migrationFile = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

func parseFilename(filename string) (version int, name string, up bool, err error) {
	m := migrationFile.FindStringSubmatch(filename)
	if m == nil {
		return 0, "", false, fmt.Errorf("%q does not match NNNN_name.{up,down}.sql", filename)
	}
	version, err = strconv.Atoi(m[1])
	if err != nil || version <= 0 {
		return 0, "", false, fmt.Errorf("%q: version must be a positive integer", filename)
	}
	return version, m[2], m[3] == "up", nil
}

// loadMigrations reads the migrations directory of fsys. Every version needs
// exactly one up and one down file.
func loadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, path := range files {
		base := path[len("migrations/"):]
		version, name, up, err := parseFilename(base)
		if err != nil {
			return nil, err
		}
		body, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", base, err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("migration %04d is named both %q and %q", version, m.Name, name)
		}

		slot := &m.DownSQL
		if up {
			slot = &m.UpSQL
		}
		if *slot != "" {
			return nil, fmt.Errorf("duplicate %s", base)
		}
		*slot = string(body)
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		switch {
		case m.UpSQL == "":
			return nil, fmt.Errorf("migration %04d_%s has no up file", m.Version, m.Name)
		case m.DownSQL == "":
			return nil, fmt.Errorf("migration %04d_%s has no down file", m.Version, m.Name)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out, nil
}

// Migrator applies and reverts the schema migrations of a database. Applied
// versions are tracked in the schema_migrations table.
type Migrator struct {
	conn       *sql.DB
	migrations []Migration
}

func newMigrator(conn *sql.DB, fsys fs.FS) (*Migrator, error) {
	migrations, err := loadMigrations(fsys)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return &Migrator{conn: conn, migrations: migrations}, nil
}

// Up applies every pending migration in version order and returns how many
// it applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		log.Debug().Int("version", mig.Version).Str("name", mig.Name).Msg("applying migration")
		err := m.inTx(ctx, mig.UpSQL, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				mig.Version, mig.Name, time.Now().UnixNano())
			return err
		})
		if err != nil {
			return n, fmt.Errorf("apply %04d_%s: %w", mig.Version, mig.Name, err)
		}
		n++
	}
	return n, nil
}

// Down reverts the newest n applied migrations and returns them, newest
// first.
func (m *Migrator) Down(ctx context.Context, n int) ([]Migration, error) {
	if n <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", n)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var revert []Migration
	for _, mig := range slices.Backward(m.migrations) {
		if _, ok := applied[mig.Version]; ok && len(revert) < n {
			revert = append(revert, mig)
		}
	}
	if len(revert) < n {
		return nil, fmt.Errorf("cannot revert %d migrations, only %d are applied", n, len(applied))
	}

	for i, mig := range revert {
		log.Info().Int("version", mig.Version).Str("name", mig.Name).Msg("reverting migration")
		err := m.inTx(ctx, mig.DownSQL, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = ?`, mig.Version)
			return err
		})
		if err != nil {
			return revert[:i], fmt.Errorf("revert %04d_%s: %w", mig.Version, mig.Name, err)
		}
	}
	return revert, nil
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, len(m.migrations))
	for i, mig := range m.migrations {
		at, ok := applied[mig.Version]
		out[i] = MigrationStatus{Version: mig.Version, Name: mig.Name, Applied: ok, AppliedAt: at}
	}
	return out, nil
}

// applied returns the applied versions with their apply times, creating the
// tracking table on first use.
func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	_, err := m.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := m.conn.QueryContext(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int]time.Time)
	for rows.Next() {
		var (
			version int
			at      int64
		)
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		out[version] = time.Unix(0, at)
	}
	return out, rows.Err()
}

// inTx runs script and then record in one transaction.
func (m *Migrator) inTx(ctx context.Context, script string, record func(*sql.Tx) error) error {
	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if err := record(tx); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}
