package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- RequestID ---

func TestRequestID_Generates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))
	rr := serve(h, httptest.NewRequest(http.MethodGet, "/x", nil))
	if seen == "" {
		t.Fatal("expected request ID in context")
	}
	if got := rr.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("header: got %q, want %q", got, seen)
	}
}

func TestRequestID_ReusesIncoming(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := serve(RequestID(okHandler), req)
	if got := rr.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("header: got %q, want abc-123", got)
	}
	if GetRequestID(context.Background()) != "" {
		t.Error("empty context should yield empty ID")
	}
}

// --- Logging ---

func TestLogging_LevelsAndErrorCode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetErrorCode(r.Context(), "invalid_store")
		w.WriteHeader(http.StatusNotFound)
	}), RequestID, Logging(logger))

	serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/stores/9/location", nil))

	out := buf.String()
	for _, want := range []string{"level=WARN", "status=404", "error_code=invalid_store", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %q: %s", want, out)
		}
	}
}

func TestLogging_ServerErrorIsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("expected error level: %s", buf.String())
	}
}

func TestSetErrorCode_OutsideLoggingIsNoop(t *testing.T) {
	SetErrorCode(context.Background(), "x") // must not panic
}

// --- HTTPMetrics ---

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/api/v1/stores/42/benchmark":    "/api/v1/stores/{id}/benchmark",
		"/api/v1/companies/acme/stores":  "/api/v1/companies/{id}/stores",
		"/api/v1/companies/rank":         "/api/v1/companies/rank",
		"/api/v1/companies/average-rank": "/api/v1/companies/average-rank",
		"/api/v1/evaluate":               "/api/v1/evaluate",
		"/health":                        "/health",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestHTTPMetrics_Records(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	h := HTTPMetrics(m)(okHandler)
	serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/stores/1/location", nil))
	serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/stores/2/location", nil))
	serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))

	c := &dto.Metric{}
	if err := m.total.WithLabelValues(http.MethodGet, "/api/v1/stores/{id}/location", "200").Write(c); err != nil {
		t.Fatal(err)
	}
	if got := c.GetCounter().GetValue(); got != 2 {
		t.Errorf("requests: got %v, want 2", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "path" && l.GetValue() == "/health" {
					t.Error("/health should not be recorded")
				}
			}
		}
	}
}

// --- Tracing ---

func TestTracing_SpanName(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	}()

	var traceID string
	h := Tracing("reviewpulse")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = GetTraceID(r)
	}))
	serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/stores/7/rankings/best", nil))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans: got %d, want 1", len(spans))
	}
	if got, want := spans[0].Name(), "GET /api/v1/stores/{id}/rankings/best"; got != want {
		t.Errorf("span name: got %q, want %q", got, want)
	}
	if traceID == "" {
		t.Error("expected trace ID in handler context")
	}
}

// --- APIKey ---

func TestAPIKey_ModeNone_PassesThrough(t *testing.T) {
	rr := serve(APIKey("none", "x-api-key", "secret")(okHandler), httptest.NewRequest(http.MethodGet, "/api/v1/dataset", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestAPIKey_EmptyKey_PassesThrough(t *testing.T) {
	rr := serve(APIKey("apikey", "x-api-key", "")(okHandler), httptest.NewRequest(http.MethodGet, "/api/v1/dataset", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rr.Code)
	}
}

func TestAPIKey_Enforced(t *testing.T) {
	h := APIKey("apikey", "x-api-key", "supersecret")(okHandler)

	tests := []struct {
		name string
		path string
		key  string
		want int
	}{
		{"correct key", "/api/v1/dataset", "supersecret", http.StatusOK},
		{"wrong key", "/api/v1/dataset", "nope", http.StatusUnauthorized},
		{"missing key", "/api/v1/dataset", "", http.StatusUnauthorized},
		{"health open", "/health", "", http.StatusOK},
		{"ready open", "/ready", "", http.StatusOK},
		{"metrics open", "/metrics", "", http.StatusOK},
		{"ws query key", "/ws/stream?api_key=supersecret", "", http.StatusOK},
		{"query key elsewhere", "/api/v1/dataset?api_key=supersecret", "", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.key != "" {
				req.Header.Set("x-api-key", tc.key)
			}
			rr := serve(h, req)
			if rr.Code != tc.want {
				t.Errorf("status: got %d, want %d", rr.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized && !strings.Contains(rr.Body.String(), `"unauthenticated"`) {
				t.Errorf("body: got %s", rr.Body.String())
			}
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	serve(Chain(okHandler, mw("a"), mw("b")), httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Join(order, ",") != "a,b" {
		t.Errorf("order: got %v, want [a b]", order)
	}
}
