// Package logging defines the Logger interface used by consensus instances and their collaborators.
// It also includes functions for setting the global log level and a per-package log level.
package logging

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logLevel      = zapcore.InfoLevel
	packageLevels = make(map[string]zapcore.Level)
	mut           sync.RWMutex
)

// ParseLevel parses a level name such as "debug" or "warn".
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel, nil
	case "info":
		return zap.InfoLevel, nil
	case "warn":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	case "panic":
		return zap.PanicLevel, nil
	case "fatal":
		return zap.FatalLevel, nil
	default:
		return 0, fmt.Errorf("invalid log level '%s'", level)
	}
}

func mustParseLevel(level string) zapcore.Level {
	l, err := ParseLevel(level)
	if err != nil {
		panic(err)
	}
	return l
}

// SetLogLevel sets the global log level.
func SetLogLevel(levelStr string) {
	level := mustParseLevel(levelStr)
	mut.Lock()
	logLevel = level
	mut.Unlock()
}

// SetPackageLogLevel sets a log level for a package, overriding the global level.
func SetPackageLogLevel(packageName, levelStr string) {
	level := mustParseLevel(levelStr)
	mut.Lock()
	packageLevels[packageName] = level
	mut.Unlock()
}

// Logger is the logging interface used by this module. It is based on zap.SugaredLogger.
type Logger interface {
	Debug(args ...any)
	Debugf(template string, args ...any)
	Info(args ...any)
	Infof(template string, args ...any)
	Warn(args ...any)
	Warnf(template string, args ...any)
	Error(args ...any)
	Errorf(template string, args ...any)
	Panic(args ...any)
	Panicf(template string, args ...any)
	// Named returns a child logger whose name is extended with the given name.
	Named(name string) Logger
}

type wrapper struct {
	inner *zap.SugaredLogger
	level zap.AtomicLevel
	mut   *sync.Mutex
}

// updateLevel applies a per-package level override for the calling package, if any.
// skip is the number of stack frames between updateLevel and the caller to inspect.
func (wr *wrapper) updateLevel(skip int) {
	mut.RLock()
	defer mut.RUnlock()

	if len(packageLevels) < 1 {
		wr.level.SetLevel(logLevel)
		return
	}

	if _, file, _, ok := runtime.Caller(skip); ok {
		for k, v := range packageLevels {
			if strings.Contains(file, k) {
				wr.level.SetLevel(v)
				return
			}
		}
	}

	wr.level.SetLevel(logLevel)
}

func (wr *wrapper) log(fn func(...any), args []any) {
	wr.mut.Lock()
	defer wr.mut.Unlock()
	wr.updateLevel(3)
	fn(args...)
}

func (wr *wrapper) logf(fn func(string, ...any), template string, args []any) {
	wr.mut.Lock()
	defer wr.mut.Unlock()
	wr.updateLevel(3)
	fn(template, args...)
}

func (wr *wrapper) Debug(args ...any)                   { wr.log(wr.inner.Debug, args) }
func (wr *wrapper) Debugf(template string, args ...any) { wr.logf(wr.inner.Debugf, template, args) }
func (wr *wrapper) Info(args ...any)                    { wr.log(wr.inner.Info, args) }
func (wr *wrapper) Infof(template string, args ...any)  { wr.logf(wr.inner.Infof, template, args) }
func (wr *wrapper) Warn(args ...any)                    { wr.log(wr.inner.Warn, args) }
func (wr *wrapper) Warnf(template string, args ...any)  { wr.logf(wr.inner.Warnf, template, args) }
func (wr *wrapper) Error(args ...any)                   { wr.log(wr.inner.Error, args) }
func (wr *wrapper) Errorf(template string, args ...any) { wr.logf(wr.inner.Errorf, template, args) }
func (wr *wrapper) Panic(args ...any)                   { wr.log(wr.inner.Panic, args) }
func (wr *wrapper) Panicf(template string, args ...any) { wr.logf(wr.inner.Panicf, template, args) }

// Named returns a child logger. The child shares the level of its parent.
func (wr *wrapper) Named(name string) Logger {
	return &wrapper{inner: wr.inner.Named(name), level: wr.level, mut: wr.mut}
}

// New returns a new logger for stderr with the given name.
func New(name string) Logger {
	var config zap.Config
	if strings.ToLower(os.Getenv("QBFT_LOG_TYPE")) == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
	mut.RLock()
	config.Level.SetLevel(logLevel)
	mut.RUnlock()
	// skip the wrapper's method and its log/logf helper
	l, err := config.Build(zap.AddCallerSkip(2))
	if err != nil {
		panic(err)
	}
	return &wrapper{inner: l.Sugar().Named(name), level: config.Level, mut: new(sync.Mutex)}
}

// NewWithDest returns a new logger for the given destination with the given name.
func NewWithDest(dest io.Writer, name string) Logger {
	mut.RLock()
	atom := zap.NewAtomicLevelAt(logLevel)
	mut.RUnlock()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(dest), atom)
	l := zap.New(core, zap.AddCallerSkip(2))
	return &wrapper{inner: l.Sugar().Named(name), level: atom, mut: new(sync.Mutex)}
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &wrapper{inner: zap.NewNop().Sugar(), level: zap.NewAtomicLevel(), mut: new(sync.Mutex)}
}
