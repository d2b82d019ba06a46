package logger

import (
	"context"
	"testing"
)

func TestFromContextOrPrecedence(t *testing.T) {
	attached := New(&Config{Level: "error", Format: "json", ServiceName: "attached"})
	fallback := New(&Config{Level: "error", Format: "json", ServiceName: "fallback"})

	ctx := attached.WithContext(context.Background())
	if got := FromContextOr(ctx, fallback); got != attached {
		t.Error("a logger attached to the context must win over the fallback")
	}

	if got := FromContextOr(context.Background(), fallback); got != fallback {
		t.Error("fallback must be used when the context carries no logger")
	}

	if got := FromContextOr(context.Background(), nil); got != GetDefault() {
		t.Error("default logger must be used when neither is available")
	}
	if got := FromContextOr(nil, nil); got != GetDefault() {
		t.Error("nil context must fall through to the default logger")
	}
}

func TestFromContextNeverNil(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Error("FromContext on a bare context returned nil")
	}
	if FromContext(nil) == nil {
		t.Error("FromContext on a nil context returned nil")
	}
}

func TestContextFieldRoundTrip(t *testing.T) {
	ctx := SetRunID(context.Background(), "run-99")
	if got := GetRunID(ctx); got != "run-99" {
		t.Errorf("GetRunID = %q, want %q", got, "run-99")
	}
	if got := GetRunID(context.Background()); got != "" {
		t.Errorf("GetRunID on a bare context = %q, want empty", got)
	}
}
