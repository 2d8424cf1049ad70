package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger interface untuk structured logging
type Logger interface {
	Info(ctx context.Context, message string, fields map[string]interface{})
	Error(ctx context.Context, message string, err error, fields map[string]interface{})
	Warn(ctx context.Context, message string, fields map[string]interface{})
	Debug(ctx context.Context, message string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
}

type correlationKey struct{}

// WithCorrelationID returns a context carrying id. Every entry logged with
// that context gets a correlation_id field.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// structuredLogger implementasi Logger dengan logrus
type structuredLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
	caller bool
}

// LoggerConfig configuration untuk logger
type LoggerConfig struct {
	Level       string
	Format      string
	ServiceName string
	// Output defaults to stdout.
	Output io.Writer
	// ReportCaller adds a caller field to every entry.
	ReportCaller bool
}

// NewLogrus builds the configured logrus logger. Components that take a
// *logrus.Logger directly (rate limiter, migrator) share it.
func NewLogrus(config LoggerConfig) *logrus.Logger {
	logrusLogger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrusLogger.SetLevel(level)

	if config.Format == "json" {
		logrusLogger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		logrusLogger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		})
	}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	logrusLogger.SetOutput(out)
	return logrusLogger
}

// NewStructuredLogger membuat instance baru dari structured logger
func NewStructuredLogger(config LoggerConfig) Logger {
	return FromLogrus(NewLogrus(config), config.ServiceName, config.ReportCaller)
}

// FromLogrus wraps an existing logrus logger.
func FromLogrus(l *logrus.Logger, serviceName string, reportCaller bool) Logger {
	if serviceName == "" {
		serviceName = "gatekeeper"
	}
	return &structuredLogger{
		logger: l,
		fields: logrus.Fields{"service": serviceName},
		caller: reportCaller,
	}
}

// NewNopLogger discards everything. Used by tests and tools.
func NewNopLogger() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &structuredLogger{logger: l, fields: logrus.Fields{}}
}

func (l *structuredLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Info(message)
}

func (l *structuredLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	l.entry(ctx, err, fields).Error(message)
}

func (l *structuredLogger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Warn(message)
}

func (l *structuredLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, nil, fields).Debug(message)
}

// WithFields membuat logger baru dengan additional fields
func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	newFields := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &structuredLogger{
		logger: l.logger,
		fields: newFields,
		caller: l.caller,
	}
}

func (l *structuredLogger) entry(ctx context.Context, err error, fields map[string]interface{}) *logrus.Entry {
	all := make(logrus.Fields, len(l.fields)+len(fields)+2)
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}
	if id := CorrelationID(ctx); id != "" {
		all["correlation_id"] = id
	}
	if l.caller {
		if pc, file, line, ok := runtime.Caller(2); ok {
			all["caller"] = fmt.Sprintf("%s:%d %s", file, line, runtime.FuncForPC(pc).Name())
		}
	}

	e := l.logger.WithFields(all)
	if err != nil {
		e = e.WithError(err)
	}
	if ctx != nil {
		e = e.WithContext(ctx)
	}
	return e
}

// Helper functions untuk common logging scenarios

// LogAuthEvent untuk authentication events
func LogAuthEvent(ctx context.Context, logger Logger, event string, userID, ip string, success bool, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "auth"
	fields["auth_event"] = event
	fields["user_id"] = userID
	fields["ip"] = ip
	fields["success"] = success

	if success {
		logger.Info(ctx, fmt.Sprintf("Auth event: %s", event), fields)
		return
	}
	logger.Warn(ctx, fmt.Sprintf("Auth event failed: %s", event), fields)
}

// LogSecurityEvent untuk security events
func LogSecurityEvent(ctx context.Context, logger Logger, event string, severity string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "security"
	fields["security_event"] = event
	fields["severity"] = severity

	message := fmt.Sprintf("Security event: %s", event)

	switch severity {
	case "HIGH":
		logger.Error(ctx, message, nil, fields)
	case "MEDIUM":
		logger.Warn(ctx, message, fields)
	default:
		logger.Info(ctx, message, fields)
	}
}

// LogPerformance untuk performance metrics
func LogPerformance(ctx context.Context, logger Logger, operation string, duration time.Duration, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["event_type"] = "performance"
	fields["operation"] = operation
	fields["duration_ms"] = duration.Milliseconds()

	logger.Debug(ctx, fmt.Sprintf("Performance: %s took %s", operation, duration), fields)
}
