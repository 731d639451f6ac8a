package logger_test

import (
	"testing"

	"github.com/straye-as/enquiry-api/internal/config"
	"github.com/straye-as/enquiry-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfig_JSONInProduction(t *testing.T) {
	cfg := logger.Config(&config.LoggingConfig{Level: "warn"}, &config.AppConfig{Environment: "production"})

	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, "ts", cfg.EncoderConfig.TimeKey)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level.Level())
}

func TestConfig_ConsoleInDevelopmentWithFallbackLevel(t *testing.T) {
	cfg := logger.Config(&config.LoggingConfig{Level: "chatty"}, &config.AppConfig{Environment: "development"})

	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())
}

func TestNewLogger(t *testing.T) {
	log, err := logger.NewLogger(&config.LoggingConfig{Level: "debug"},
		&config.AppConfig{Name: "enquiry-api", Environment: "development"}, "worker")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestWithRequestAndJob(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	logger.WithRequest(base, "POST", "/api/v1/enquiries", "req-1").Info("handled")
	logger.WithJob(base, "follow_up_reminders", "run-1").Info("ran")

	require.Equal(t, 2, logs.Len())
	req := logs.All()[0].ContextMap()
	assert.Equal(t, "POST", req["method"])
	assert.Equal(t, "req-1", req["request_id"])
	job := logs.All()[1].ContextMap()
	assert.Equal(t, "follow_up_reminders", job["job"])
	assert.Equal(t, "run-1", job["run_id"])
}
