package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Maintenance implements taggedcontent.Maintenance against a PostgreSQL
// database. Dump and Restore shell out to pg_dump and pg_restore, which
// must be on PATH.
type Maintenance struct {
	dsn string
}

func NewMaintenance(dsn string) *Maintenance {
	return &Maintenance{dsn: dsn}
}

func (m *Maintenance) migrator() (*migrate.Migrate, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	d, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", d, m.dsn)
}

// InitSchema creates the schema by running all migrations.
func (m *Maintenance) InitSchema(ctx context.Context) error {
	return m.Migrate(ctx)
}

// Migrate applies pending migrations.
func (m *Maintenance) Migrate(ctx context.Context) error {
	migrator, err := m.migrator()
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Reset drops the public schema and recreates it empty.
func (m *Maintenance) Reset(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, m.dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public`); err != nil {
		return fmt.Errorf("failed to reset schema: %w", err)
	}
	return m.Migrate(ctx)
}

// Dump writes a pg_dump custom-format archive to path.
func (m *Maintenance) Dump(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "pg_dump", "--format=custom", "--file", path, m.dsn)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pg_dump failed: %w: %s", err, output)
	}
	return nil
}

// Restore replaces the database contents with a pg_dump archive.
func (m *Maintenance) Restore(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "pg_restore",
		"--clean", "--if-exists", "--dbname", m.dsn, path)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pg_restore failed: %w: %s", err, output)
	}
	return nil
}
