package blob

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	appcfg "github.com/orbitha/orbitha/internal/config"
)

// NewBlobStore builds a blob store using mode local|s3|auto and reports the mode in effect.
func NewBlobStore(ctx context.Context, cfg appcfg.BlobConfig, logger *zap.Logger) (Store, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = appcfg.BlobModeLocal
	}
	log := logger.With(zap.String("component", "blob"))

	switch mode {
	case appcfg.BlobModeLocal:
		log.Info("blob store ready", zap.String("mode", "local"), zap.String("reason", "forced"))
		return NewMemoryStore(), appcfg.BlobModeLocal, nil

	case appcfg.BlobModeAuto:
		if !cfg.S3.IsConfigured() {
			level, code, msg := cfg.S3.Diagnostics()
			fields := []zap.Field{zap.String("code", code), zap.String("s3", cfg.S3.DiagnosticsSummary())}
			if level == "warn" {
				log.Warn(msg, fields...)
			} else {
				log.Info(msg, fields...)
			}
			log.Info("blob store ready", zap.String("mode", "local"), zap.String("reason", "auto, S3 not configured"))
			return NewMemoryStore(), appcfg.BlobModeLocal, nil
		}

		store, err := newS3(ctx, cfg.S3)
		if err != nil {
			log.Warn("s3 init failed, falling back to local", zap.Error(err))
			return NewMemoryStore(), appcfg.BlobModeLocal, nil
		}
		log.Info("blob store ready", zap.String("mode", "s3"), zap.String("reason", "auto, configured"), zap.String("s3", cfg.S3.DiagnosticsSummary()))
		return store, appcfg.BlobModeS3, nil

	case appcfg.BlobModeS3:
		if !cfg.S3.IsConfigured() {
			missing := cfg.S3.MissingRequired()
			log.Error("s3 config incomplete", zap.Strings("missing", missing), zap.String("s3", cfg.S3.DiagnosticsSummary()))
			return nil, "", fmt.Errorf("BLOB_MODE=s3 requested but missing required config: %s", strings.Join(missing, ", "))
		}

		store, err := newS3(ctx, cfg.S3)
		if err != nil {
			return nil, "", fmt.Errorf("BLOB_MODE=s3 init failed: %w", err)
		}
		log.Info("blob store ready", zap.String("mode", "s3"), zap.String("reason", "forced"), zap.String("s3", cfg.S3.DiagnosticsSummary()))
		return store, appcfg.BlobModeS3, nil

	default:
		return nil, "", fmt.Errorf("unsupported blob mode: %s", mode)
	}
}

func newS3(ctx context.Context, c appcfg.S3Config) (*S3Store, error) {
	return NewS3Store(ctx, c.Endpoint, c.Region, c.Bucket, c.AccessKeyID, c.SecretAccessKey)
}
