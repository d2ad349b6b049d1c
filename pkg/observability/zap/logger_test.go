package zap

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	ubzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/theory-cloud/docsite/pkg/observability"
)

type fakeNotifier struct {
	mu      sync.Mutex
	entries []observability.LogEntry
	fails   atomic.Int32
	calls   atomic.Int32
}

func (f *fakeNotifier) Notify(_ context.Context, entry observability.LogEntry) error {
	f.calls.Add(1)
	if f.fails.Load() > 0 {
		f.fails.Add(-1)
		return errors.New("sns unavailable")
	}
	f.mu.Lock()
	f.entries = append(f.entries, entry)
	f.mu.Unlock()
	return nil
}

func (f *fakeNotifier) Entries() []observability.LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]observability.LogEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

func noEnv(string) (string, bool) { return "", false }

func TestZapLogger_SanitizesMessageAndFields(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)

	logger, err := NewZapLogger(observability.LoggerConfig{}, WithZapLogger(ubzap.New(core)))
	require.NoError(t, err)

	logger.Info("deploy\r\nstarted", map[string]any{
		"github_token": "ghp_secret",
		"bucket":       "botodocs.com\n",
	})

	entries := observed.All()
	require.Len(t, entries, 1)
	require.Equal(t, "deploystarted", entries[0].Message)
	ctx := entries[0].ContextMap()
	require.Equal(t, "[REDACTED]", ctx["github_token"])
	require.Equal(t, "botodocs.com", ctx["bucket"])
}

func TestZapLogger_ScopeFieldsAttached(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)

	logger, err := NewZapLogger(observability.LoggerConfig{}, WithZapLogger(ubzap.New(core)))
	require.NoError(t, err)

	logger.WithScope(observability.Scope{Stack: "botodocs", Operation: "synth"}).Debug("synthesizing")

	entries := observed.FilterMessage("synthesizing").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	require.Equal(t, "botodocs", ctx["stack"])
	require.Equal(t, "synth", ctx["operation"])
	require.NotContains(t, ctx, "build_id")
}

func TestZapLogger_NotifiesErrorsWithScopeAndBaseFields(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	notifier := &fakeNotifier{}

	logger, err := NewZapLogger(
		observability.LoggerConfig{BufferSize: 4, MaxRetries: 3, RetryDelay: time.Millisecond},
		WithZapLogger(ubzap.New(core)),
		WithErrorNotifier(notifier),
	)
	require.NoError(t, err)

	notifier.fails.Store(2)
	scoped := logger.
		WithFields(map[string]any{"aws_secret_access_key": "x"}).
		WithScope(observability.Scope{Stack: "botodocs", BuildID: "botodocs-deploy-site:1"})
	scoped.Warn("not forwarded")
	scoped.Error("sync failed", map[string]any{"bucket": "botodocs.com"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, scoped.Flush(ctx))

	entries := notifier.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "sync failed", entries[0].Message)
	require.Equal(t, "botodocs-deploy-site:1", entries[0].Scope.BuildID)
	require.Equal(t, "[REDACTED]", entries[0].Fields["aws_secret_access_key"])
	require.Equal(t, "botodocs.com", entries[0].Fields["bucket"])
	require.EqualValues(t, 3, notifier.calls.Load())

	stats := logger.GetStats()
	require.EqualValues(t, 2, stats.EntriesLogged)
	require.EqualValues(t, 1, stats.Notified)
	require.False(t, stats.LastFlush.IsZero())
	require.True(t, logger.IsHealthy())
}

func TestZapLogger_NotifierFailureMarksUnhealthy(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	notifier := &fakeNotifier{}
	notifier.fails.Store(10)

	logger, err := NewZapLogger(
		observability.LoggerConfig{MaxRetries: 2, RetryDelay: time.Millisecond},
		WithZapLogger(ubzap.New(core)),
		WithErrorNotifier(notifier),
	)
	require.NoError(t, err)

	logger.Error("boom")
	require.NoError(t, logger.Close())

	require.EqualValues(t, 2, notifier.calls.Load())
	require.False(t, logger.IsHealthy())
	require.Equal(t, "sns unavailable", logger.GetStats().LastError)

	logger.Error("after close")
	require.EqualValues(t, 1, logger.GetStats().EntriesLogged)
}

func TestZapLogger_CloseRightAfterErrorDrainsQueue(t *testing.T) {
	for i := 0; i < 200; i++ {
		core, _ := observer.New(zapcore.DebugLevel)
		notifier := &fakeNotifier{}

		logger, err := NewZapLogger(
			observability.LoggerConfig{MaxRetries: 1},
			WithZapLogger(ubzap.New(core)),
			WithErrorNotifier(notifier),
		)
		require.NoError(t, err)

		logger.Error("boom")
		closed := make(chan error, 1)
		go func() { closed <- logger.Close() }()

		select {
		case err := <-closed:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatalf("close hung on iteration %d", i)
		}
		require.Len(t, notifier.Entries(), 1)
	}
}

func TestZapLogger_BuildsFromConfig(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(
		observability.LoggerConfig{Format: "json", Level: "warn", Output: &buf},
		WithLookupEnv(noEnv),
	)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", map[string]any{"objects": 3})
	require.NoError(t, logger.Flush(context.Background()))

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"message":"shown"`)
	require.Contains(t, out, `"objects":3`)
}

func TestZapLogger_FormatDefaultsToJSONInCodeBuild(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(
		observability.LoggerConfig{Output: &buf},
		WithLookupEnv(func(key string) (string, bool) {
			if key == codeBuildEnvVar {
				return "botodocs-deploy-site:abc", true
			}
			return "", false
		}),
	)
	require.NoError(t, err)
	logger.Info("hello")
	require.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())

	buf.Reset()
	logger, err = NewZapLogger(observability.LoggerConfig{Output: &buf}, WithLookupEnv(noEnv))
	require.NoError(t, err)
	logger.Info("hello")
	require.Contains(t, buf.String(), "INFO")
}

func TestZapLogger_RejectsBadConfig(t *testing.T) {
	_, err := NewZapLogger(observability.LoggerConfig{Format: "xml"}, WithLookupEnv(noEnv))
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = NewZapLogger(observability.LoggerConfig{Level: "trace"}, WithLookupEnv(noEnv))
	require.ErrorIs(t, err, ErrUnsupportedLevel)
}
