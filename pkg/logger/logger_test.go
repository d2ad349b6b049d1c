package logger

import (
	"testing"

	"github.com/theory-cloud/docsite/pkg/observability"
)

func TestLogger_DefaultIsNoOp(t *testing.T) {
	got := Logger()
	if got == nil {
		t.Fatal("expected Logger() to return a non-nil logger")
	}
	if !got.IsHealthy() {
		t.Fatal("expected default logger to be healthy")
	}
}

func TestLogger_SetLoggerAndFor(t *testing.T) {
	recorder := observability.NewTestLogger()
	prev := SetLogger(recorder)
	t.Cleanup(func() { SetLogger(prev) })

	if Logger() != recorder {
		t.Fatal("expected Logger() to return the logger set via SetLogger")
	}

	For("publish").Info("uploaded")
	entries := recorder.Entries()
	if len(entries) != 1 || entries[0].Scope.Operation != "publish" {
		t.Fatalf("unexpected entries: %#v", entries)
	}

	if SetLogger(nil) != recorder {
		t.Fatal("expected SetLogger to return the previous logger")
	}
	if Logger() == nil || Logger() == recorder {
		t.Fatal("expected Logger() to reset to a fresh no-op logger")
	}
}
