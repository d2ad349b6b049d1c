// Package observability defines the structured logging surface shared by the
// CDK app, the CLI and the publish helpers.
package observability

import (
	"context"
	"io"
	"time"
)

type SanitizerFunc func(key string, value any) any

// ErrorNotifier forwards error-level entries to an out-of-band channel.
type ErrorNotifier interface {
	Notify(ctx context.Context, entry LogEntry) error
}

// Scope identifies which deployment, build and operation an entry belongs to.
type Scope struct {
	Stack     string `json:"stack,omitempty"`
	Stage     string `json:"stage,omitempty"`
	BuildID   string `json:"build_id,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// Merge returns s with every non-empty field of other applied.
func (s Scope) Merge(other Scope) Scope {
	if other.Stack != "" {
		s.Stack = other.Stack
	}
	if other.Stage != "" {
		s.Stage = other.Stage
	}
	if other.BuildID != "" {
		s.BuildID = other.BuildID
	}
	if other.Operation != "" {
		s.Operation = other.Operation
	}
	return s
}

// Fields returns the non-empty scope values keyed by their log field names.
func (s Scope) Fields() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{
		"stack":     s.Stack,
		"stage":     s.Stage,
		"build_id":  s.BuildID,
		"operation": s.Operation,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Scope     Scope          `json:"scope"`
}

type StructuredLogger interface {
	Debug(message string, fields ...map[string]any)
	Info(message string, fields ...map[string]any)
	Warn(message string, fields ...map[string]any)
	Error(message string, fields ...map[string]any)

	WithField(key string, value any) StructuredLogger
	WithFields(fields map[string]any) StructuredLogger
	WithScope(scope Scope) StructuredLogger

	Flush(ctx context.Context) error
	Close() error
	IsHealthy() bool
	GetStats() LoggerStats
}

type LoggerStats struct {
	LastFlush      time.Time `json:"last_flush"`
	LastError      string    `json:"last_error,omitempty"`
	EntriesLogged  int64     `json:"entries_logged"`
	EntriesDropped int64     `json:"entries_dropped"`
	Notified       int64     `json:"notified"`
	ErrorCount     int64     `json:"error_count"`
}

// LoggerConfig configures logger implementations.
//
// An empty Format selects json inside CodeBuild and console elsewhere.
type LoggerConfig struct {
	Format       string
	Level        string
	Output       io.Writer
	RetryDelay   time.Duration
	BufferSize   int
	MaxRetries   int
	EnableCaller bool
}
