package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	// LevelError only logs errors
	LevelError LogLevel = iota
	// LevelWarn logs warnings and errors
	LevelWarn
	// LevelInfo logs general information, warnings and errors
	LevelInfo
	// LevelDebug logs detailed debug information and all above
	LevelDebug
	// LevelTrace logs very detailed trace information and all above
	LevelTrace
)

var levelNames = map[LogLevel]string{
	LevelError: "ERROR",
	LevelWarn:  "WARN",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
	LevelTrace: "TRACE",
}

// String returns the upper-case level name.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel converts a level name such as "debug" or "TRACE" to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for level, levelName := range levelNames {
		if levelName == upper {
			return level, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// level is shared between a logger and every logger derived from it with
// WithPrefix, so SetLevel on the root affects all components.
type level struct {
	mu    sync.RWMutex
	value LogLevel
}

func (l *level) get() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value
}

func (l *level) set(v LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
}

// Logger provides leveled, prefixed logging on top of zap.
type Logger struct {
	level  *level
	core   *sharedCore
	prefix string
	sugar  *zap.SugaredLogger
}

// sharedCore is the zap core behind a logger and everything derived from
// it, so the output encoding can be switched after loggers are handed out.
type sharedCore struct {
	cur atomic.Pointer[zapcore.Core]
}

func newSharedCore(development bool) *sharedCore {
	c := &sharedCore{}
	c.set(development)
	return c
}

func (c *sharedCore) set(development bool) {
	encoder := zapcore.NewJSONEncoder(encoderConfig(development))
	if development {
		encoder = zapcore.NewConsoleEncoder(encoderConfig(development))
	}

	// zap itself lets everything through; filtering happens in shouldLog so
	// that Trace can sit below zap's debug level.
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapcore.DebugLevel)
	c.cur.Store(&core)
}

func (c *sharedCore) load() zapcore.Core {
	return *c.cur.Load()
}

func (c *sharedCore) Enabled(lvl zapcore.Level) bool {
	return c.load().Enabled(lvl)
}

func (c *sharedCore) With(fields []zapcore.Field) zapcore.Core {
	return c.load().With(fields)
}

func (c *sharedCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *sharedCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.load().Write(ent, fields)
}

func (c *sharedCore) Sync() error {
	return c.load().Sync()
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the default logger instance
func GetLogger() *Logger {
	once.Do(func() {
		defaultLogger = NewLogger("MEMVFS", os.Getenv("LOG_DEV") != "")

		// Set initial log level from environment
		if name := os.Getenv("LOG_LEVEL"); name != "" {
			if lvl, err := ParseLevel(name); err == nil {
				defaultLogger.SetLevel(lvl)
			}
		}

		// Enable debug logging if FUSE_DEBUG is set
		if os.Getenv("FUSE_DEBUG") != "" {
			defaultLogger.SetLevel(LevelDebug)
		}
	})
	return defaultLogger
}

// NewLogger creates a new logger with the given prefix. Development loggers
// write coloured console output; otherwise entries are JSON encoded.
func NewLogger(prefix string, development bool) *Logger {
	core := newSharedCore(development)
	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))

	return &Logger{
		level:  &level{value: LevelInfo},
		core:   core,
		prefix: prefix,
		sugar:  base.Named(prefix).Sugar(),
	}
}

// NewNop returns a logger that discards everything. Useful in tests.
func NewNop() *Logger {
	return &Logger{
		level:  &level{value: LevelError},
		prefix: "nop",
		sugar:  zap.NewNop().Sugar(),
	}
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	if development {
		return zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			NameKey:        "N",
			CallerKey:      "C",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "M",
			StacktraceKey:  "S",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}
	}

	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.level.set(level)
}

// SetDevelopment switches between console and JSON output for this logger
// and every logger derived from it.
func (l *Logger) SetDevelopment(development bool) {
	if l.core == nil {
		return
	}
	l.core.set(development)
}

// Level returns the current logging level
func (l *Logger) Level() LogLevel {
	return l.level.get()
}

// Prefix returns the component name this logger writes under
func (l *Logger) Prefix() string {
	return l.prefix
}

// shouldLog determines if a message at the given level should be logged
func (l *Logger) shouldLog(level LogLevel) bool {
	return level <= l.level.get()
}

// log performs the actual logging
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	switch level {
	case LevelError:
		l.sugar.Errorf(format, args...)
	case LevelWarn:
		l.sugar.Warnf(format, args...)
	case LevelInfo:
		l.sugar.Infof(format, args...)
	case LevelDebug:
		l.sugar.Debugf(format, args...)
	case LevelTrace:
		l.sugar.Debugw(fmt.Sprintf(format, args...), "trace", true)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Trace logs a trace message
func (l *Logger) Trace(format string, args ...interface{}) {
	l.log(LevelTrace, format, args...)
}

// WithPrefix creates a new logger with an additional prefix. The derived
// logger shares the level of its parent.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		level:  l.level,
		core:   l.core,
		prefix: prefix,
		sugar:  l.sugar.Named(prefix),
	}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
