// Package daglog is dagma's logging facade: a small Logger interface backed
// by zap by default, plus per-component loggers for the two things this
// module actually logs about (cache integrity events, runner lifecycle).
package daglog

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Logger is the logging contract dagma depends on.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
}

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "message",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.SecondsDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

func newZapSugar() Logger {
	return zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stdout),
			zapLevel,
		),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	).Sugar()
}

// Default is the package-level logger backing the free functions below and
// every Component logger. Swap it out (tests commonly install a recorder)
// to redirect all of dagma's logging at once.
var Default Logger = newZapSugar()

// SetLevel sets the log level. Valid levels: "debug", "info", "warn", "error".
func SetLevel(level string) {
	switch level {
	case LevelDebug:
		zapLevel.SetLevel(zapcore.DebugLevel)
	case LevelInfo:
		zapLevel.SetLevel(zapcore.InfoLevel)
	case LevelWarn:
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	default:
		zapLevel.SetLevel(zapcore.InfoLevel)
	}
}

func Debug(args ...any)                 { Default.Debug(args...) }
func Debugf(format string, args ...any) { Default.Debugf(format, args...) }
func Info(args ...any)                  { Default.Info(args...) }
func Infof(format string, args ...any)  { Default.Infof(format, args...) }
func Warn(args ...any)                  { Default.Warn(args...) }
func Warnf(format string, args ...any)  { Default.Warnf(format, args...) }
func Error(args ...any)                 { Default.Error(args...) }
func Errorf(format string, args ...any) { Default.Errorf(format, args...) }

// componentLogger prefixes every message with its component name and
// delegates to Default, so SetLevel and swapping Default still apply.
// Call sites that want to identify their origin (cache integrity warnings,
// runner lifecycle messages) use Component instead of the bare package
// functions.
type componentLogger struct{ name string }

// Component returns a Logger scoped to name. dagma's own call sites use
// this rather than the bare package functions: runner names its logger
// "runner", cache names its "cache".
func Component(name string) Logger {
	return componentLogger{name: name}
}

func (c componentLogger) prefix(msg string) string {
	return fmt.Sprintf("[%s] %s", c.name, msg)
}

func (c componentLogger) Debug(args ...any) { Default.Debug(c.prefix(fmt.Sprint(args...))) }
func (c componentLogger) Debugf(format string, args ...any) {
	Default.Debug(c.prefix(fmt.Sprintf(format, args...)))
}
func (c componentLogger) Info(args ...any) { Default.Info(c.prefix(fmt.Sprint(args...))) }
func (c componentLogger) Infof(format string, args ...any) {
	Default.Info(c.prefix(fmt.Sprintf(format, args...)))
}
func (c componentLogger) Warn(args ...any) { Default.Warn(c.prefix(fmt.Sprint(args...))) }
func (c componentLogger) Warnf(format string, args ...any) {
	Default.Warn(c.prefix(fmt.Sprintf(format, args...)))
}
func (c componentLogger) Error(args ...any) { Default.Error(c.prefix(fmt.Sprint(args...))) }
func (c componentLogger) Errorf(format string, args ...any) {
	Default.Error(c.prefix(fmt.Sprintf(format, args...)))
}
