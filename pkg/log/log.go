package log

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// DefaultLoggerFlag is the stdlib log flag set used by the default logger.
const DefaultLoggerFlag = log.Ldate | log.Ltime | log.Lmicroseconds

var (
	defaultLogger *Logger
	once          sync.Once
	mu            sync.RWMutex
)

func init() {
	once.Do(func() {
		defaultLogger = New(os.Stdout, "", DefaultLoggerFlag, LogLevelDebug)
	})
}

type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

func (level LogLevel) String() string {
	switch level {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a log level string into a LogLevel.
// Valid log levels are: error, warn, info, debug, trace.
func ParseLogLevel(level string) (LogLevel, error) {
	switch level {
	case "error":
		return LogLevelError, nil
	case "warn":
		return LogLevelWarn, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	case "trace":
		return LogLevelTrace, nil
	default:
		return LogLevelError, fmt.Errorf("unknown log level: %s", level)
	}
}

// SetDefaultLogger replaces the logger used by the package level functions.
func SetDefaultLogger(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

func getDefaultLogger() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

func SetLevel(level LogLevel) {
	l := getDefaultLogger()
	l.SetLevel(level)
	l.Info("Log level set to %s", level)
}

type Logger struct {
	logger    *log.Logger
	lock      sync.RWMutex
	level     LogLevel
	component string
	// parent owns the level of loggers created by With
	parent *Logger
}

func New(out io.Writer, prefix string, flag int, level LogLevel) *Logger {
	return &Logger{
		logger: log.New(out, prefix, flag),
		level:  level,
	}
}

// With returns a logger that tags every entry with component. It shares the
// output and level of l.
func (l *Logger) With(component string) *Logger {
	root := l
	if l.parent != nil {
		root = l.parent
	}
	return &Logger{
		logger:    root.logger,
		component: component,
		parent:    root,
	}
}

func (l *Logger) SetLevel(level LogLevel) {
	if l.parent != nil {
		l.parent.SetLevel(level)
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	l.level = level
}

func (l *Logger) Level() LogLevel {
	if l.parent != nil {
		return l.parent.Level()
	}
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.level
}

func (l *Logger) logf(level LogLevel, format string, args ...interface{}) {
	if level <= l.Level() {
		logEntry := map[string]interface{}{
			"level": level.String(),
			"msg":   fmt.Sprintf(format, args...),
		}
		if l.component != "" {
			logEntry["component"] = l.component
		}
		msgBytes, _ := json.Marshal(logEntry)
		l.logger.Print(string(msgBytes))
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(LogLevelError, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(LogLevelWarn, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(LogLevelInfo, format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(LogLevelDebug, format, args...)
}

func (l *Logger) Trace(format string, args ...interface{}) {
	l.logf(LogLevelTrace, format, args...)
}

// With returns a component logger of the current default logger.
func With(component string) *Logger {
	return getDefaultLogger().With(component)
}

func Info(format string, args ...interface{}) {
	getDefaultLogger().Info(format, args...)
}

func Error(format string, args ...interface{}) {
	getDefaultLogger().Error(format, args...)
}

func Warn(format string, args ...interface{}) {
	getDefaultLogger().Warn(format, args...)
}

func Debug(format string, args ...interface{}) {
	getDefaultLogger().Debug(format, args...)
}

func Trace(format string, args ...interface{}) {
	getDefaultLogger().Trace(format, args...)
}
