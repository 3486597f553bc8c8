package persist

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// migrationsDir holds the session_snapshots and replay_journals schema.
const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrations embed.FS

// schemaFiles lists the embedded migration files in apply order.
func schemaFiles() ([]string, error) {
	files, err := fs.Glob(migrations, path.Join(migrationsDir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	for i, f := range files {
		files[i] = path.Base(f)
	}
	return files, nil
}

// RunMigrations brings the snapshot and journal tables up to date and logs
// the resulting schema version.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
	files, err := schemaFiles()
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations embedded under %s", migrationsDir)
	}

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	log.Info("database migrations applied",
		zap.Int64("version", version),
		zap.String("latest", files[len(files)-1]),
		zap.Strings("schema", files))
	return nil
}
