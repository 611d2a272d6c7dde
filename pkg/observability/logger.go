package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/menuforge/menuforge/pkg/contextkeys"
)

// LogLevel is the minimum severity a logger emits
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is a thin facade over slog's JSON handler. With* methods return
// derived loggers, so a logger can be enriched per request or per operation
// without mutating the parent.
type Logger struct {
	logger *slog.Logger
	level  LogLevel
}

// NewLogger creates a JSON logger writing to output, or stdout when output
// is nil.
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level.slogLevel()})
	return &Logger{logger: slog.New(handler), level: level}
}

// WithField returns a logger that attaches one field to every entry
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With(key, value), level: l.level}
}

// WithFields returns a logger that attaches every given field
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{logger: l.logger.With(args...), level: l.level}
}

// WithError attaches the error message under the "error" key. A nil error
// returns the logger unchanged.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// ForContext annotates the logger with the request and user IDs carried by
// the context, when present.
func (l *Logger) ForContext(ctx context.Context) *Logger {
	out := l
	if id := GetRequestID(ctx); id != "" {
		out = out.WithField("request_id", id)
	}
	if id := GetUserID(ctx); id != "" {
		out = out.WithField("user_id", id)
	}
	return out
}

func (l *Logger) Debug(message string) {
	l.logger.Debug(message)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Info(message string) {
	l.logger.Info(message)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(message string) {
	l.logger.Warn(message)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(message string) {
	l.logger.Error(message)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// WithRequestID stores the request ID for later log annotation
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return contextkeys.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// GetRequestID returns the stored request ID, or empty
func GetRequestID(ctx context.Context) string {
	id, _ := contextkeys.Value(ctx, contextkeys.RequestIDKey).(string)
	return id
}

// WithUserID stores the authenticated user ID for later log annotation
func WithUserID(ctx context.Context, userID string) context.Context {
	return contextkeys.WithValue(ctx, contextkeys.UserIDKey, userID)
}

// GetUserID returns the stored user ID, or empty
func GetUserID(ctx context.Context) string {
	id, _ := contextkeys.Value(ctx, contextkeys.UserIDKey).(string)
	return id
}
