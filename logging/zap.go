// Package logging adapts zap to the accounts.Logger interface.
package logging

import (
	"os"
	"strings"

	"github.com/goliatone/go-accounts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a zap logger writing to stdout. Unknown levels fall back to
// info, unknown formats to console.
func New(level, format string) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(format, FormatJSON) {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), ParseLevel(level))

	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Zap implements accounts.Logger on top of a sugared zap logger. Arguments
// are alternating keys and values.
type Zap struct {
	s *zap.SugaredLogger
}

var _ accounts.Logger = (*Zap)(nil)

// NewZap wraps l. A nil logger discards everything.
func NewZap(l *zap.Logger) *Zap {
	if l == nil {
		l = zap.NewNop()
	}
	return &Zap{s: l.Sugar()}
}

func (z *Zap) Debug(msg string, args ...any) {
	z.s.Debugw(msg, args...)
}

func (z *Zap) Info(msg string, args ...any) {
	z.s.Infow(msg, args...)
}

func (z *Zap) Warn(msg string, args ...any) {
	z.s.Warnw(msg, args...)
}

func (z *Zap) Error(msg string, args ...any) {
	z.s.Errorw(msg, args...)
}

// Named returns a child logger tagged with component.
func (z *Zap) Named(component string) *Zap {
	return &Zap{s: z.s.With("component", component)}
}

// Sync flushes buffered entries.
func (z *Zap) Sync() error {
	return z.s.Sync()
}
