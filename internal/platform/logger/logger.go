package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. Level comes from LOG_LEVEL (default info);
// anything other than "debug" gets the JSON production encoder.
func New() (*zap.Logger, error) {
	level := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}

	var cfg zap.Config
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL %q, defaulting to info: %v\n", level, err)
		cfg.Level.SetLevel(zapcore.InfoLevel)
	}

	return cfg.Build()
}
