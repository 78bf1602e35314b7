package observability

import (
	"context"
	"testing"
)

func TestInitTracing_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "pathref", "test", "  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected non-nil shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown failed: %v", err)
	}

	_, span := Tracer.Start(context.Background(), "noop")
	span.End()
}
