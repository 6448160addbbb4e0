// Package logger provides leveled, structured logging with privacy masking
// for conversation content.
package logger

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level represents logging levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level. Unknown names map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is a leveled logger with field support and content masking.
// Conversation text passes through here, so anything resembling a credential
// is masked before it reaches the output writer.
type Logger struct {
	level       Level
	output      io.Writer
	prefix      string
	fields      map[string]interface{}
	maskContent bool
	mu          sync.Mutex
}

// Patterns masked unconditionally: tokens and keys have no business in a
// log line regardless of where they came from.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9]{20,})`),
	regexp.MustCompile(`(?i)(Bearer\s+[a-zA-Z0-9._-]+)`),
	regexp.MustCompile(`(?i)((?:api[_-]?key|secret|token|password)[=:]\s*["']?[^\s"']{8,}["']?)`),
}

// Field names whose values are conversation text. Masked only when the
// logger runs in content-masking mode (privacy setting).
var contentFieldNames = map[string]bool{
	"message":  true,
	"content":  true,
	"response": true,
	"query":    true,
}

var sensitiveFieldNames = map[string]bool{
	"password":   true,
	"secret":     true,
	"token":      true,
	"api_key":    true,
	"credential": true,
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Default returns the process-wide default logger.
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(LevelInfo, os.Stderr)
	})
	return defaultLogger
}

// New creates a new logger.
func New(level Level, output io.Writer) *Logger {
	return &Logger{
		level:  level,
		output: output,
		fields: make(map[string]interface{}),
	}
}

// SetLevel sets the logging level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// SetMaskContent toggles masking of conversation-text fields.
func (l *Logger) SetMaskContent(mask bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maskContent = mask
}

// WithField returns a new logger with the field added.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a new logger with the fields added.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		level:       l.level,
		output:      l.output,
		prefix:      l.prefix,
		fields:      merged,
		maskContent: l.maskContent,
	}
}

// WithPrefix returns a new logger with the prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		level:       l.level,
		output:      l.output,
		prefix:      prefix,
		fields:      l.fields,
		maskContent: l.maskContent,
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}

func maskSecrets(s string) string {
	for _, p := range secretPatterns {
		s = p.ReplaceAllStringFunc(s, maskString)
	}
	return s
}

func (l *Logger) maskValue(key string, value interface{}) interface{} {
	keyLower := strings.ToLower(key)
	if sensitiveFieldNames[keyLower] {
		if str, ok := value.(string); ok {
			return maskString(str)
		}
		return "***"
	}
	if str, ok := value.(string); ok {
		if l.maskContent && contentFieldNames[keyLower] {
			return fmt.Sprintf("<%d chars>", len(str))
		}
		return maskSecrets(str)
	}
	return value
}

func (l *Logger) formatFields() string {
	if len(l.fields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(l.fields))
	for k, v := range l.fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, l.maskValue(k, v)))
	}
	return " " + strings.Join(parts, " ")
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02T15:04:05.000Z07:00")

	formatted := msg
	if len(args) > 0 {
		formatted = fmt.Sprintf(msg, args...)
	}
	formatted = maskSecrets(formatted)

	prefix := ""
	if l.prefix != "" {
		prefix = "[" + l.prefix + "] "
	}

	fmt.Fprintf(l.output, "%s %s %s%s%s\n", timestamp, level.String(), prefix, formatted, l.formatFields())
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) { l.log(LevelDebug, msg, args...) }

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) { l.log(LevelInfo, msg, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) { l.log(LevelWarn, msg, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) { l.log(LevelError, msg, args...) }

// Package-level functions using the default logger

func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Default().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Default().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }

// SetLevel sets the level of the default logger.
func SetLevel(level Level) { Default().SetLevel(level) }

// SetOutput sets the output of the default logger.
func SetOutput(w io.Writer) { Default().SetOutput(w) }

// WithField returns a default-logger child with the field added.
func WithField(key string, value interface{}) *Logger { return Default().WithField(key, value) }

// WithFields returns a default-logger child with the fields added.
func WithFields(fields map[string]interface{}) *Logger { return Default().WithFields(fields) }
