package tracing

import (
	"context"
	"strings"
	"testing"

	"socialcredit-api/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitExporters(t *testing.T) {
	tests := []struct {
		exporter string
		wantErr  bool
	}{
		{"", false},
		{"none", false},
		{"stdout", false},
		{"zipkin", true},
	}

	for _, tt := range tests {
		t.Run(tt.exporter, func(t *testing.T) {
			shutdown, err := Init("socialcredit-api", "test", config.TracingConfig{Exporter: tt.exporter, SampleRatio: 1})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Init() error: %v", err)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Errorf("shutdown error: %v", err)
			}
		})
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		if got := Sampler(tt.ratio).Description(); !strings.HasPrefix(got, "ParentBased{root:"+tt.want) {
			t.Errorf("Sampler(%v) = %s, want %s", tt.ratio, got, tt.want)
		}
	}
}

func TestStartSpanRecordsAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "ledger.transfer", attribute.Int64("amount", 25))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "ledger.transfer" {
		t.Errorf("name = %q", spans[0].Name())
	}
	found := false
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "amount" && kv.Value.AsInt64() == 25 {
			found = true
		}
	}
	if !found {
		t.Errorf("attributes = %v, want amount=25", spans[0].Attributes())
	}
}
