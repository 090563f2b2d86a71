package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/rtshare/exchange-backend/internal/config"
)

func keepGlobals(t *testing.T) {
	t.Helper()
	tp, prop := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(prop)
	})
}

func enabled(name string, insecure bool) config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Insecure:    insecure,
		Endpoint:    "localhost:4317",
		ServiceName: name,
		SampleRatio: 1,
	}
}

func TestSetupOTel_DisabledLeavesGlobals(t *testing.T) {
	keepGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "dev")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("disabled tracing replaced the global provider")
	}
}

func TestSetupOTel_InstallsProvider(t *testing.T) {
	for _, insecure := range []bool{true, false} {
		t.Run(map[bool]string{true: "insecure", false: "tls"}[insecure], func(t *testing.T) {
			keepGlobals(t)

			shutdown, err := SetupOTel(context.Background(), enabled("exchange-test", insecure), "v1.0.0")
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
				t.Fatal("expected *sdktrace.TracerProvider")
			}

			ctx, span := otel.Tracer("services/RequestService").Start(context.Background(), "Accept")
			carrier := propagation.MapCarrier{}
			otel.GetTextMapPropagator().Inject(ctx, carrier)
			span.End()
			if carrier.Get("traceparent") == "" {
				t.Fatal("traceparent not injected")
			}

			sctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
			defer cancel()
			_ = shutdown(sctx)
		})
	}
}

func TestSetupOTel_ExporterError(t *testing.T) {
	keepGlobals(t)
	orig := newExporter
	t.Cleanup(func() { newExporter = orig })
	newExporter = func(context.Context, ...otlptracegrpc.Option) (*otlptrace.Exporter, error) {
		return nil, errors.New("dial refused")
	}
	before := otel.GetTracerProvider()

	_, err := SetupOTel(context.Background(), enabled("svc", true), "v0")
	if err == nil || !strings.Contains(err.Error(), "otlp exporter") {
		t.Fatalf("err = %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("provider changed on failure")
	}
}

func TestSetupOTel_ResourceError(t *testing.T) {
	keepGlobals(t)
	orig := newResource
	t.Cleanup(func() { newResource = orig })
	newResource = func(context.Context, string, string) (*resource.Resource, error) {
		return nil, errors.New("bad attrs")
	}
	before := otel.GetTracerProvider()

	_, err := SetupOTel(context.Background(), enabled("svc", true), "v0")
	if err == nil || !strings.Contains(err.Error(), "otel resource") {
		t.Fatalf("err = %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("provider changed on failure")
	}
}

func TestSampler(t *testing.T) {
	cases := map[float64]string{
		1:    "AlwaysOnSampler",
		2:    "AlwaysOnSampler",
		0:    "AlwaysOffSampler",
		-1:   "AlwaysOffSampler",
		0.25: "TraceIDRatioBased",
	}
	for ratio, want := range cases {
		if got := sampler(ratio).Description(); !strings.Contains(got, want) {
			t.Fatalf("sampler(%v) = %q, want it to mention %q", ratio, got, want)
		}
	}
}
