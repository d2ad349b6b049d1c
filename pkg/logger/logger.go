// Package logger holds the process-wide structured logger.
package logger

import (
	"sync"

	"github.com/theory-cloud/docsite/pkg/observability"
)

var (
	globalMu     sync.RWMutex
	globalLogger observability.StructuredLogger = observability.NewNoOpLogger()
)

// Logger returns the global structured logger singleton.
func Logger() observability.StructuredLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLogger replaces the global logger and returns the previous one.
//
// Passing nil resets the logger to a no-op implementation.
func SetLogger(next observability.StructuredLogger) observability.StructuredLogger {
	globalMu.Lock()
	defer globalMu.Unlock()
	prev := globalLogger
	if next == nil {
		next = observability.NewNoOpLogger()
	}
	globalLogger = next
	return prev
}

// For returns the global logger scoped to operation.
func For(operation string) observability.StructuredLogger {
	return Logger().WithScope(observability.Scope{Operation: operation})
}
