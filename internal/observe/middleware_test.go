package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTelemetry wires an isolated meter provider and an in-memory span
// exporter so tests can inspect exactly what one control-plane request
// records.
func setupTelemetry(t *testing.T) (*Metrics, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })

	return m, reader, exp
}

// respond stands in for a control-plane handler answering with the given
// status.
func respond(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	})
}

func TestMiddleware_CorrelationIDOnHealthCheck(t *testing.T) {
	m, _, _ := setupTelemetry(t)
	mw := Middleware(m)

	var cid string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid = CorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if len(cid) != 32 {
		t.Fatalf("correlation ID = %q; want a 32-char trace ID", cid)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != cid {
		t.Errorf("X-Correlation-ID = %q; want %q", got, cid)
	}
}

func TestMiddleware_SpanNamedAfterRoute(t *testing.T) {
	m, _, exp := setupTelemetry(t)
	mw := Middleware(m)

	rec := httptest.NewRecorder()
	mw(respond(http.StatusOK)).ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d; want 1", len(spans))
	}
	if spans[0].Name != "GET /readyz" {
		t.Errorf("span name = %q; want %q", spans[0].Name, "GET /readyz")
	}
}

func TestMiddleware_RecordsScrapeLatency(t *testing.T) {
	m, reader, _ := setupTelemetry(t)
	mw := Middleware(m)

	rec := httptest.NewRecorder()
	mw(respond(http.StatusOK)).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "moentreprise.http.request.duration")
	if met == nil {
		t.Fatal("request duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatalf("request duration = %+v; want a histogram with data", met.Data)
	}

	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d; want 1", dp.Count)
	}
	want := map[string]string{"method": "GET", "path": "/metrics", "status": "200"}
	for _, kv := range dp.Attributes.ToSlice() {
		if v, ok := want[string(kv.Key)]; ok && kv.Value.AsString() == v {
			delete(want, string(kv.Key))
		}
	}
	if len(want) != 0 {
		t.Errorf("latency sample missing attributes: %v", want)
	}
}

func TestMiddleware_DegradedReadinessOnSpan(t *testing.T) {
	m, _, exp := setupTelemetry(t)
	mw := Middleware(m)

	rec := httptest.NewRecorder()
	mw(respond(http.StatusServiceUnavailable)).ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d; want 503", rec.Code)
	}
	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d; want 1", len(spans))
	}
	var found bool
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" && a.Value.AsInt64() == 503 {
			found = true
		}
	}
	if !found {
		t.Error("span missing the 503 http.response.status_code attribute")
	}
}

func TestMiddleware_JoinsOperatorTrace(t *testing.T) {
	m, _, _ := setupTelemetry(t)
	mw := Middleware(m)

	var cid string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid = CorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// A traced operator tool curling the health endpoint passes its own
	// W3C traceparent; the middleware joins that trace instead of minting
	// a new one.
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	const wantTrace = "4bf92f3577b34da6a3ce929d0e0e4736"
	if cid != wantTrace {
		t.Errorf("correlation ID = %q; want the incoming trace ID %q", cid, wantTrace)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != wantTrace {
		t.Errorf("X-Correlation-ID = %q; want %q", got, wantTrace)
	}
}
