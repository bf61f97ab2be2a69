package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/config"
	"github.com/orbitha/orbitha/internal/dbmigrate"
	"github.com/orbitha/orbitha/internal/httpserver"
	"github.com/orbitha/orbitha/internal/logging"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	printStartupBanner(logger, cfg)
	for _, w := range cfg.Warnings {
		logger.Warn("config", zap.String("warning", w))
	}
	validateConfig(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrationsOnStartup {
		dbURL, source, _, err := dbmigrate.SelectDatabaseURL(cfg, true)
		if err != nil {
			logger.Fatal("startup migrations", zap.Error(err))
		}
		logger.Info("startup migrations", zap.String("command", "up"), zap.String("using", source))
		if err := dbmigrate.Run(ctx, "up", dbURL, "", logger); err != nil {
			logger.Fatal("startup migrations failed", zap.Error(err))
		}
		logger.Info("startup migrations completed")
	}

	server, err := httpserver.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}
	defer server.Close()

	if err := server.Start(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

// printStartupBanner logs the resolved configuration. Secrets only show as set/not set.
func printStartupBanner(logger *zap.Logger, cfg *config.Config) {
	logger.Info("orbitha api",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel))

	logger.Info("database",
		zap.String("runtime_url", describeDBURL(cfg)),
		zap.String("pooled", config.SetOrNot(cfg.DatabaseURLPooled)),
		zap.String("direct", config.SetOrNot(cfg.DatabaseURLDirect)),
		zap.String("sqlite_path", config.NonEmptyOrDash(cfg.SQLitePath)),
		zap.Bool("migrations_on_startup", cfg.RunMigrationsOnStartup))

	logger.Info("auth",
		zap.String("jwt_secret", secretStatus(cfg.JWTSecret, config.DefaultJWTSecret)),
		zap.Int("jwt_ttl_minutes", cfg.JWTTTLMinutes),
		zap.Bool("dev_auth", cfg.AuthDevEnabled))

	fields := []zap.Field{zap.String("mode", cfg.Blob.Mode)}
	if cfg.Blob.Mode != config.BlobModeLocal {
		fields = append(fields, zap.String("s3", cfg.Blob.S3.DiagnosticsSummary()))
	}
	logger.Info("blob", fields...)

	fields = []zap.Field{zap.String("mode", cfg.AI.Mode)}
	if cfg.AI.Mode == config.AIModeGateway {
		fields = append(fields,
			zap.String("gateway_url", cfg.AI.GatewayURL),
			zap.String("model", cfg.AI.Model),
			zap.String("api_key", config.SetOrNot(cfg.AI.GatewayAPIKey)))
	}
	logger.Info("ai", fields...)

	logger.Info("chat",
		zap.Int("history_limit", cfg.Chat.HistoryLimit),
		zap.String("timezone", cfg.Chat.TimeZone),
		zap.Int("demo_per_minute", cfg.DemoChatPerMinute))
}

// validateConfig stops the process on problems that would break a deployed environment.
// Locally the same problems are only logged.
func validateConfig(logger *zap.Logger, cfg *config.Config) {
	problems := cfg.Validate()
	if len(problems) == 0 {
		return
	}
	if cfg.IsProduction() {
		logger.Fatal("invalid configuration", zap.String("env", cfg.Env), zap.String("problems", strings.Join(problems, "; ")))
	}
	for _, p := range problems {
		logger.Warn("configuration problem", zap.String("problem", p))
	}
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return fmt.Sprintf("set (default, insecure %q)", insecureDefault)
	}
	return "set (custom)"
}

func describeDBURL(cfg *config.Config) string {
	switch {
	case cfg.DatabaseURL == "" && cfg.SQLitePath != "":
		return "not set (sqlite)"
	case cfg.DatabaseURL == "":
		return "not set (in-memory storage)"
	case cfg.DatabaseURLPooled != "" && cfg.DatabaseURL == cfg.DatabaseURLPooled:
		return "set (via DATABASE_URL_POOLED)"
	default:
		return "set"
	}
}
