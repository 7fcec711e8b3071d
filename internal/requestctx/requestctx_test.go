package requestctx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetActorNPK(ctx) != "" {
		t.Fatal("expected empty values on a bare context")
	}
	ctx = WithActorNPK(WithRequestID(ctx, "req-1"), "1001")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := GetActorNPK(ctx); got != "1001" {
		t.Fatalf("expected 1001, got %q", got)
	}
}

func TestLoggerAnnotatesRequest(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	ctx := WithActorNPK(WithRequestID(context.Background(), "req-9"), "2002")
	Logger(ctx).Warn("cleanup failed")

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("requestId=req-9")) {
		t.Fatalf("missing request id in %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("actor=2002")) {
		t.Fatalf("missing actor in %q", out)
	}
}
