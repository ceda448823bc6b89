package core

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide logger from the logging section of the
// config: console-encoded output to stdout, or to a file when a path is
// configured, filtered to the configured minimum level. The logger is handed
// to every component explicitly; there is no package-level logger.
func NewLogger(cfg *Config) (*zap.SugaredLogger, error) {
	levelText := cfg.Logging.LogLevel
	if levelText == "" {
		levelText = "info"
	}
	level, err := zapcore.ParseLevel(levelText)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.LogLevel, err)
	}

	encoding := zap.NewProductionEncoderConfig()
	encoding.EncodeTime = zapcore.ISO8601TimeEncoder
	encoding.EncodeLevel = zapcore.CapitalLevelEncoder
	encoding.EncodeDuration = zapcore.StringDurationEncoder

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
	if cfg.Logging.LogFilePath != "" {
		file, err := os.OpenFile(cfg.Logging.LogFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", cfg.Logging.LogFilePath, err)
		}
		sink = zapcore.Lock(file)
	}

	var opts []zap.Option
	if cfg.Logging.IncludeCaller {
		opts = append(opts, zap.AddCaller())
	}

	logger := zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encoding), sink, level), opts...)
	return logger.Sugar(), nil
}
