package ai

import (
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/config"
)

// NewProvider picks the gateway or the offline mock from AI_MODE.
func NewProvider(cfg config.AIConfig, logger *zap.Logger) Provider {
	if cfg.Mode == config.AIModeGateway {
		logger.Info("ai provider ready", zap.String("mode", "gateway"), zap.String("model", cfg.Model), zap.String("base_url", cfg.GatewayURL))
		return NewGatewayProvider(GatewayOptions{
			BaseURL:     cfg.GatewayURL,
			APIKey:      cfg.GatewayAPIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxOutputTokens,
			Temperature: cfg.Temperature,
		}, logger)
	}

	logger.Info("ai provider ready", zap.String("mode", "mock"))
	return NewMockProvider()
}
