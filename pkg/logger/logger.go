package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %s", name)
	}
}

// Logger is a leveled logger with structured key/value fields.
// Loggers created with WithField share the underlying output.
type Logger struct {
	level  Level
	out    *log.Logger
	fields map[string]interface{}
}

// Config controls logger construction.
type Config struct {
	Level  Level
	Output io.Writer
}

// New returns a logger at INFO level writing to stdout.
func New() *Logger {
	return NewWithConfig(Config{Level: INFO, Output: os.Stdout})
}

// NewWithConfig returns a logger with the given level and output.
func NewWithConfig(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	return &Logger{
		level: cfg.Level,
		// formatting is done here, keep the stdlib logger bare
		out:    log.New(cfg.Output, "", 0),
		fields: make(map[string]interface{}),
	}
}

// WithField returns a new logger carrying one additional context field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(key, value)
}

// WithFields returns a new logger carrying additional context fields,
// given as alternating key/value pairs.
func (l *Logger) WithFields(keyVals ...interface{}) *Logger {
	child := &Logger{
		level:  l.level,
		out:    l.out,
		fields: make(map[string]interface{}, len(l.fields)+len(keyVals)/2),
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for i := 0; i+1 < len(keyVals); i += 2 {
		child.fields[fmt.Sprintf("%v", keyVals[i])] = keyVals[i+1]
	}
	return child
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(DEBUG, msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.log(INFO, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.log(WARN, msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(ERROR, msg, kv...) }

// Fatal logs at ERROR level and exits the process.
func (l *Logger) Fatal(msg string, kv ...interface{}) {
	l.log(ERROR, msg, kv...)
	os.Exit(1)
}

// SetLevel changes the minimum level this logger emits.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) log(level Level, msg string, kv ...interface{}) {
	if level < l.level {
		return
	}

	merged := make(map[string]interface{}, len(l.fields)+len(kv)/2)
	for k, v := range l.fields {
		merged[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		merged[fmt.Sprintf("%v", kv[i])] = kv[i+1]
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(time.Now().Format("2006-01-02T15:04:05.000Z07:00"))
	b.WriteString("] [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)

	if len(merged) > 0 {
		// sorted for stable output
		keys := make([]string, 0, len(merged))
		for k := range merged {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" |")
		for _, k := range keys {
			b.WriteString(" ")
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(formatValue(merged[k]))
		}
	}

	l.out.Print(b.String())
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		if strings.Contains(v, " ") {
			return fmt.Sprintf("%q", v)
		}
		return v
	case error:
		return fmt.Sprintf("%q", v.Error())
	case time.Duration:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// package-level default logger for convenience
var defaultLogger = New()

func Debug(msg string, kv ...interface{}) { defaultLogger.Debug(msg, kv...) }
func Info(msg string, kv ...interface{})  { defaultLogger.Info(msg, kv...) }
func Warn(msg string, kv ...interface{})  { defaultLogger.Warn(msg, kv...) }
func Error(msg string, kv ...interface{}) { defaultLogger.Error(msg, kv...) }
func Fatal(msg string, kv ...interface{}) { defaultLogger.Fatal(msg, kv...) }

// WithField returns a child of the default logger with one context field.
func WithField(key string, value interface{}) *Logger {
	return defaultLogger.WithField(key, value)
}

// SetLevel changes the default logger's minimum level.
func SetLevel(level Level) {
	defaultLogger.SetLevel(level)
}
