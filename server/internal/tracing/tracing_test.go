package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(Config{ServiceName: "reviewpulse"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Enabled() {
		t.Error("expected disabled provider")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewProvider_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing service", Config{Enabled: true, SamplingRate: 1}},
		{"negative rate", Config{Enabled: true, ServiceName: "s", SamplingRate: -0.1}},
		{"rate above one", Config{Enabled: true, ServiceName: "s", SamplingRate: 1.5}},
		{"unknown exporter", Config{Enabled: true, ServiceName: "s", SamplingRate: 1, Exporter: "zipkin"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewProvider(tc.cfg); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestNewProvider_EnabledHTTP(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	p, err := NewProvider(Config{
		Enabled:      true,
		ServiceName:  "reviewpulse",
		Exporter:     "otlp-http",
		Endpoint:     "localhost:4318",
		Insecure:     true,
		SamplingRate: 0.5,
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if !p.Enabled() {
		t.Error("expected enabled provider")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}

func TestSampler(t *testing.T) {
	if sampler(1).Description() != sdktrace.AlwaysSample().Description() {
		t.Error("rate 1 should always sample")
	}
	if sampler(0).Description() != sdktrace.NeverSample().Description() {
		t.Error("rate 0 should never sample")
	}
	if got, want := sampler(0.25).Description(), sdktrace.TraceIDRatioBased(0.25).Description(); got != want {
		t.Errorf("ratio sampler: got %q, want %q", got, want)
	}
}

func TestStartSpan_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	}()

	_, end := StartSpan(context.Background(), "engine.SelectRanks", attribute.String("store_id", "s1"))
	end(errors.New("invalid store"))
	_, end = StartSpan(context.Background(), "engine.Evaluate")
	end(nil)

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans: got %d, want 2", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status: got %v, want Error", spans[0].Status().Code)
	}
	if spans[1].Status().Code == codes.Error {
		t.Error("successful span marked as error")
	}
	var found bool
	for _, a := range spans[0].Attributes() {
		if a.Key == "store_id" && a.Value.AsString() == "s1" {
			found = true
		}
	}
	if !found {
		t.Error("store_id attribute missing")
	}
}
