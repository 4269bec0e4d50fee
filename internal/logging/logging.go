// Package logging builds the structured logger shared by all three agent
// binaries and redacts auth tokens before they reach any sink.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger tagged with this process's agent identity.
// "production" gets JSON output at info level; anything else gets
// human-readable console output at debug level.
func New(environment, agentType, agentID string) (*zap.Logger, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(
		zap.String("agent_type", agentType),
		zap.String("agent_id", agentID),
	), nil
}

// RedactToken returns a zap field carrying a fixed placeholder instead of
// the token itself; auth_token must never reach a log line (spec.md §3
// treats it as a credential).
func RedactToken(token string) zap.Field {
	if token == "" {
		return zap.String("auth_token", "")
	}
	return zap.String("auth_token", "***redacted***")
}
