package dbmigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var ErrEmptyDatabaseURL = errors.New("database URL is empty")

// Run executes a goose command against Postgres. An empty migrationsDir uses
// the SQL files embedded in the binary.
func Run(ctx context.Context, command, dbURL, migrationsDir string, logger *zap.Logger, args ...string) error {
	if dbURL == "" {
		return ErrEmptyDatabaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	dir := "."
	if migrationsDir == "" {
		goose.SetBaseFS(migrations.FS)
	} else {
		goose.SetBaseFS(os.DirFS(migrationsDir))
	}
	defer goose.SetBaseFS(nil)

	goose.SetLogger(gooseLogger{logger.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}
	return nil
}

// gooseLogger routes goose output through zap.
type gooseLogger struct {
	sugar *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) { l.sugar.Infof(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...any) { l.sugar.Fatalf(format, v...) }
