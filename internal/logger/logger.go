// Package logger builds the zap loggers shared by the api, worker and CLI
// processes.
package logger

import (
	"fmt"
	"strings"

	"github.com/straye-as/enquiry-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config returns the zap configuration for an environment. Production and
// the json format log structured lines with ISO8601 timestamps; anything else
// logs coloured console lines.
func Config(cfg *config.LoggingConfig, appCfg *config.AppConfig) zap.Config {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.Format, "json") || appCfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg
}

// NewLogger builds the process logger. Every line carries the app,
// environment and process name, plus the timezone used for day boundaries.
func NewLogger(cfg *config.LoggingConfig, appCfg *config.AppConfig, process string) (*zap.Logger, error) {
	zapCfg := Config(cfg, appCfg)
	zapCfg.InitialFields = map[string]interface{}{
		"app":         appCfg.Name,
		"environment": appCfg.Environment,
	}
	if process != "" {
		zapCfg.InitialFields["process"] = process
	}
	if appCfg.Timezone != "" {
		zapCfg.InitialFields["timezone"] = appCfg.Timezone
	}

	log, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// WithRequest tags log lines of one HTTP request
func WithRequest(log *zap.Logger, method, path, requestID string) *zap.Logger {
	return log.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)
}

// WithJob tags log lines emitted by a scheduled job run
func WithJob(log *zap.Logger, job, runID string) *zap.Logger {
	return log.With(
		zap.String("job", job),
		zap.String("run_id", runID),
	)
}
