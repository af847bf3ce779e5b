package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func loggerConfig(env string) zap.Config {
	if env == "production" {
		return zap.NewProductionConfig()
	}
	return zap.NewDevelopmentConfig()
}

// NewLogger khởi tạo structured logger: production config khi env là
// "production", development config cho các môi trường còn lại.
func NewLogger(env string) (*zap.Logger, error) {
	return loggerConfig(env).Build()
}

// NewStderrLogger is NewLogger writing to stderr only, for commands whose
// stdout carries data.
func NewStderrLogger(env string, level zapcore.Level) (*zap.Logger, error) {
	cfg := loggerConfig(env)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
