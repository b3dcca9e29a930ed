// Package logging builds the process logger: JSON lines to a rotated file
// plus a terse console core on stderr.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects where and how much to log.
type Config struct {
	// File is the log file path; empty disables file logging.
	File  string
	Level string

	// Verbose lowers both cores to debug.
	Verbose bool

	// Console receives warnings and errors; defaults to os.Stderr.
	Console io.Writer
}

// DefaultFile returns ~/.local/share/quillmate/logs/quillmate.log.
func DefaultFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "quillmate", "logs", "quillmate.log")
}

// New creates the logger. The file core rotates at 10MB and keeps 5 gzipped
// backups for 30 days.
func New(cfg Config) (*zap.Logger, error) {
	fileLevel := zap.InfoLevel
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		fileLevel = lvl
	}
	consoleLevel := zap.WarnLevel
	if cfg.Verbose {
		fileLevel, consoleLevel = zap.DebugLevel, zap.DebugLevel
	}

	var cores []zapcore.Core

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}

		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.MessageKey = "message"
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotator),
			fileLevel,
		))
	}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.TimeKey = ""
	consoleConfig.CallerKey = ""
	cores = append(cores, zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleConfig),
		zapcore.Lock(zapcore.AddSync(console)),
		consoleLevel,
	))

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
