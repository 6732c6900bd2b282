// Package logging builds the zap logger used across the server.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/teilomillet/quill/config"
)

// Logger bundles the zap logger with its level handle and closes the rotating
// log file, if any.
type Logger struct {
	*zap.Logger
	Atom zap.AtomicLevel
	file io.Closer
}

// New builds a logger from cfg. Format "json" uses the production encoder,
// "text" the console encoder. When cfg.File.Path is set every entry is also
// written to a lumberjack rotated file.
func New(cfg config.LoggingConfig) (*Logger, error) {
	return newLogger(cfg, zapcore.Lock(os.Stderr))
}

func newLogger(cfg config.LoggingConfig, out zapcore.WriteSyncer) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	atom := zap.NewAtomicLevelAt(level)

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "text":
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, out, atom)}

	l := &Logger{Atom: atom}
	if cfg.File.Path != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		// files always get JSON lines
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(file), atom))
		l.file = file
	}

	l.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return l, nil
}

// ParseLevel maps a configured level name to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", s)
}

// SetLevel changes the level of a running logger. Unknown names are ignored
// and reported.
func (l *Logger) SetLevel(s string) error {
	level, err := ParseLevel(s)
	if err != nil {
		return err
	}
	l.Atom.SetLevel(level)
	return nil
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
