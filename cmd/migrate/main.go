package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/config"
	"github.com/orbitha/orbitha/internal/dbmigrate"
	"github.com/orbitha/orbitha/internal/logging"
)

const usage = "usage: migrate [up|up-by-one|down|redo|reset|status|version] [-dir path]"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	command := os.Args[1]
	switch command {
	case "up", "up-by-one", "down", "redo", "reset", "status", "version":
	default:
		fmt.Fprintf(os.Stderr, "unsupported command %q\n%s\n", command, usage)
		os.Exit(2)
	}

	// -dir reads SQL files from disk instead of the embedded set.
	var dir string
	if len(os.Args) == 4 && os.Args[2] == "-dir" {
		dir = os.Args[3]
	}

	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	dbURL, source, warning, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		logger.Fatal("select database url", zap.Error(err))
	}
	if warning != "" {
		logger.Warn("migrate", zap.String("warning", warning))
	}
	logger.Info("migrate", zap.String("command", command), zap.String("using", source))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := dbmigrate.Run(ctx, command, dbURL, dir, logger); err != nil {
		logger.Fatal("migrate failed", zap.String("command", command), zap.Error(err))
	}
	logger.Info("migrate completed", zap.String("command", command))
}
