package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestTracer_NilProvider(t *testing.T) {
	if tracer := Tracer(nil); tracer == nil {
		t.Fatal("expected non-nil tracer")
	}
}

func TestTracer_WithProvider(t *testing.T) {
	if tracer := Tracer(noop.NewTracerProvider()); tracer == nil {
		t.Fatal("expected non-nil tracer")
	}
}

func TestSetupPropagation(t *testing.T) {
	orig := otel.GetTextMapPropagator()
	defer otel.SetTextMapPropagator(orig)

	SetupPropagation()

	want := map[string]bool{"traceparent": false, "X-Amzn-Trace-Id": false}
	for _, f := range otel.GetTextMapPropagator().Fields() {
		if _, ok := want[f]; ok {
			want[f] = true
		}
	}
	for field, found := range want {
		if !found {
			t.Errorf("expected propagator to handle %q", field)
		}
	}
}

func TestSetup_NoEndpoint(t *testing.T) {
	origProp := otel.GetTextMapPropagator()
	defer otel.SetTextMapPropagator(origProp)
	origTP := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), "", "voicedesk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != origTP {
		t.Error("an empty endpoint must leave the global provider alone")
	}
}

func TestNewTracerProvider(t *testing.T) {
	// The exporter connects lazily, so an unreachable endpoint is accepted.
	tp, err := NewTracerProvider(t.Context(), "http://localhost:0/v1/traces", "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = tp.Shutdown(t.Context()) }()

	var _ trace.TracerProvider = tp
}
