package logging

import (
	"io"
	"os"

	"github.com/IvanShishkin/sigscan/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger: a console core on stderr at the configured
// level (debug when verbose) and, if a log file is configured, a JSON core
// writing to a rotated file at info level or lower. The returned closer
// releases the file writer.
func New(cfg config.LogConfig, verbose bool) (*zap.Logger, io.Closer, error) {
	consoleLevel, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		consoleLevel = zapcore.DebugLevel
	}

	consoleEncoder := zap.NewDevelopmentEncoderConfig()
	consoleEncoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoder), zapcore.Lock(os.Stderr), consoleLevel),
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		lj := newFileWriter(cfg)
		fileLevel := zapcore.InfoLevel
		if consoleLevel < fileLevel {
			fileLevel = consoleLevel
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(lj),
			fileLevel,
		))
		closer = lj
	}

	return zap.New(zapcore.NewTee(cores...)), closer, nil
}

// ParseLevel converts a level name, defaulting to warn when empty
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.WarnLevel, nil
	}
	return zapcore.ParseLevel(s)
}

func newFileWriter(cfg config.LogConfig) *lumberjack.Logger {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}
	maxAge := cfg.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 28
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   false,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
