package observability

import (
	"context"
	"testing"
)

func TestNewNoOpLogger(t *testing.T) {
	logger := NewNoOpLogger()
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if !logger.IsHealthy() {
		t.Fatal("expected noop logger to be healthy")
	}
	if logger.WithScope(Scope{Stack: "botodocs"}) != logger {
		t.Fatal("expected noop With* to return itself")
	}
	if err := logger.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestTestLogger_ScopesAndFields(t *testing.T) {
	logger := NewTestLogger()

	scoped := logger.
		WithScope(Scope{Stack: "botodocs", Stage: "live"}).
		WithScope(Scope{Operation: "publish"}).
		WithField("bucket", "botodocs.com")
	scoped.Info("uploaded", map[string]any{"objects": 12, "github_token": "ghp_x"})

	entries := logger.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != "info" || e.Message != "uploaded" {
		t.Fatalf("unexpected entry: %#v", e)
	}
	if e.Scope != (Scope{Stack: "botodocs", Stage: "live", Operation: "publish"}) {
		t.Fatalf("unexpected scope: %#v", e.Scope)
	}
	if e.Fields["bucket"] != "botodocs.com" || e.Fields["objects"] != 12 {
		t.Fatalf("expected fields to be present, got %#v", e.Fields)
	}
	if e.Fields["github_token"] != "[REDACTED]" {
		t.Fatalf("expected token redacted, got %#v", e.Fields["github_token"])
	}

	// The parent logger does not inherit derived fields.
	logger.Warn("bare\nmessage")
	if got := logger.Entries()[1]; len(got.Fields) != 0 || got.Message != "baremessage" {
		t.Fatalf("unexpected bare entry: %#v", got)
	}
	if msgs := logger.Messages("warn"); len(msgs) != 1 {
		t.Fatalf("expected one warn message, got %v", msgs)
	}
}

func TestTestLogger_Lifecycle(t *testing.T) {
	logger := NewTestLogger()
	if !logger.GetStats().LastFlush.IsZero() {
		t.Fatal("expected zero LastFlush before flushing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := logger.Flush(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if err := logger.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if logger.GetStats().LastFlush.IsZero() {
		t.Fatal("expected LastFlush to be set")
	}

	_ = logger.Close()
	logger.Error("dropped")
	if logger.IsHealthy() || len(logger.Entries()) != 0 {
		t.Fatal("expected closed logger to drop entries and report unhealthy")
	}
}

func TestScope_FieldsOmitEmpty(t *testing.T) {
	got := Scope{Stack: "botodocs", BuildID: "b:1"}.Fields()
	if len(got) != 2 || got["stack"] != "botodocs" || got["build_id"] != "b:1" {
		t.Fatalf("unexpected fields: %#v", got)
	}
}
