package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// Fields identifies who triggered a log line. They travel in the
// context of one tool invocation and are written with every *Ctx call.
type Fields struct {
	TraceID  string
	ClientID string
	Username string
}

type fieldsKey struct{}

// WithFields returns a copy of ctx carrying f
func WithFields(ctx context.Context, f Fields) context.Context {
	return context.WithValue(ctx, fieldsKey{}, f)
}

// FieldsFrom returns the fields stored in ctx, or the zero value
func FieldsFrom(ctx context.Context) Fields {
	if ctx == nil {
		return Fields{}
	}
	f, _ := ctx.Value(fieldsKey{}).(Fields)
	return f
}

func (f Fields) apply(e *zerolog.Event) {
	if f.TraceID != "" {
		e.Str("trace_id", f.TraceID)
	}
	if f.ClientID != "" {
		e.Str("client_id", f.ClientID)
	}
	if f.Username != "" {
		e.Str("username", f.Username)
	}
}

// DebugCtx logs a debug message with the fields carried by ctx
func (l *Logger) DebugCtx(ctx context.Context, format string, args ...interface{}) {
	l.log(FieldsFrom(ctx), DEBUG, format, args...)
}

// InfoCtx logs an info message with the fields carried by ctx
func (l *Logger) InfoCtx(ctx context.Context, format string, args ...interface{}) {
	l.log(FieldsFrom(ctx), INFO, format, args...)
}

// WarnCtx logs a warning message with the fields carried by ctx
func (l *Logger) WarnCtx(ctx context.Context, format string, args ...interface{}) {
	l.log(FieldsFrom(ctx), WARN, format, args...)
}

// ErrorCtx logs an error message with the fields carried by ctx
func (l *Logger) ErrorCtx(ctx context.Context, format string, args ...interface{}) {
	l.log(FieldsFrom(ctx), ERROR, format, args...)
}

func DebugCtx(ctx context.Context, format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.DebugCtx(ctx, format, args...)
	}
}

func InfoCtx(ctx context.Context, format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.InfoCtx(ctx, format, args...)
	}
}

func WarnCtx(ctx context.Context, format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.WarnCtx(ctx, format, args...)
	}
}

func ErrorCtx(ctx context.Context, format string, args ...interface{}) {
	if defaultLogger != nil {
		defaultLogger.ErrorCtx(ctx, format, args...)
	}
}
