package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"

	"github.com/reviewpulse/reviewpulse/server/internal/alerts"
	"github.com/reviewpulse/reviewpulse/server/internal/engine"
	"github.com/reviewpulse/reviewpulse/server/internal/middleware"
	"github.com/reviewpulse/reviewpulse/server/internal/store"
	"github.com/reviewpulse/reviewpulse/server/internal/table"
	"github.com/reviewpulse/reviewpulse/server/internal/tracing"
)

// AlertLister is the read side of the alert engine.
type AlertLister interface {
	Active() []alerts.Alert
}

// Check is a named readiness probe, e.g. the Redis ping.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Options carries the optional collaborators of a Handler.
type Options struct {
	Alerts AlertLister
	Checks []Check
}

// Handler is the HTTP handler for the REST API.
type Handler struct {
	store  *store.Store
	policy atomic.Pointer[Policy]
	gen    atomic.Uint64
	alerts AlertLister
	checks []Check
	mux    *http.ServeMux
}

// endpoint computes the response of an analytics route from one snapshot.
type endpoint func(r *http.Request, snap *store.Snapshot, p *Policy) (any, error)

// New creates a Handler and registers all routes.
func New(st *store.Store, p Policy, opts Options) *Handler {
	h := &Handler{store: st, alerts: opts.Alerts, checks: opts.Checks, mux: http.NewServeMux()}
	h.policy.Store(&p)

	h.mux.HandleFunc("/health", h.health)
	h.mux.HandleFunc("/ready", h.ready)
	h.mux.HandleFunc("/api/v1/evaluate", h.evaluate)
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.route("/api/v1/dataset", "dataset", h.dataset)

	h.route("/api/v1/companies/rank", "rank_companies", h.rankCompanies)
	h.route("/api/v1/companies/average-rank", "average_rank", h.averageRank)
	h.route("/api/v1/companies/{id}/benchmark", "company_vs_rest", h.companyBenchmark)
	h.route("/api/v1/companies/{id}/distribution", "distribution", h.companyDistribution)
	h.route("/api/v1/companies/{id}/stores", "company_stores", h.companyStores)
	h.route("/api/v1/companies/{id}/performance", "company_general_performance", h.companyPerformance)

	h.route("/api/v1/stores/{id}/rankings/{direction}", "select_ranks", h.storeRankings)
	h.route("/api/v1/stores/{id}/highlights", "highlights", h.storeHighlights)
	h.route("/api/v1/stores/{id}/performance", "classify_performance", h.storePerformance)
	h.route("/api/v1/stores/{id}/benchmark", "store_vs_benchmark", h.storeBenchmark)
	h.route("/api/v1/stores/{id}/main-rankings", "store_main_rankings", h.storeMainRankings)
	h.route("/api/v1/stores/{id}/general-rankings", "store_general_rankings", h.storeGeneralRankings)
	h.route("/api/v1/stores/{id}/location", "store_location", h.storeLocation)

	h.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, r, http.StatusNotFound, "not_found", "no such route")
	})
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// SetPolicy swaps the thresholds used by subsequent requests.
func (h *Handler) SetPolicy(p Policy) {
	h.policy.Store(&p)
	h.gen.Add(1)
}

// CacheVersion identifies the dataset and policy behind analytics responses,
// so cached entries stop matching on a reload or a policy swap. It is empty
// before the first load.
func (h *Handler) CacheVersion() string {
	snap := h.store.Current()
	if snap == nil {
		return ""
	}
	return snap.Version + ":p" + strconv.FormatUint(h.gen.Load(), 10)
}

// Policy returns the policy currently in effect.
func (h *Handler) Policy() Policy { return *h.policy.Load() }

// route registers an analytics endpoint: GET only, 503 before the first
// load, one span per engine call, engine errors mapped to status codes.
func (h *Handler) route(pattern, op string, fn endpoint) {
	h.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeErr(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		snap := h.store.Current()
		if snap == nil {
			writeErr(w, r, http.StatusServiceUnavailable, "not_loaded", store.ErrNotLoaded.Error())
			return
		}

		ctx, end := tracing.StartSpan(r.Context(), "engine."+op,
			attribute.String("dataset.version", snap.Version))
		out, err := fn(r.WithContext(ctx), snap, h.policy.Load())
		end(err)
		if err != nil {
			writeEngineErr(w, r, op, err)
			return
		}
		jsonResp(w, http.StatusOK, out)
	})
}

// --- service endpoints ------------------------------------------------------

// health is the liveness probe. It never looks at the dataset.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{Status: "Rock and Roll"})
}

// ready reports whether the service can answer analytics queries.
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	resp := ReadyResponse{Status: "ready", Checks: map[string]string{}}

	switch snap := h.store.Current(); {
	case snap == nil:
		resp.Checks["dataset"] = "not loaded"
	case h.store.Stale():
		resp.Checks["dataset"] = "stale since " + snap.LoadedAt.UTC().Format(time.RFC3339)
		resp.DatasetVersion = snap.Version
	default:
		resp.Checks["dataset"] = "ok"
		resp.DatasetVersion = snap.Version
	}
	ok := resp.Checks["dataset"] == "ok"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for _, c := range h.checks {
		if err := c.Fn(ctx); err != nil {
			resp.Checks[c.Name] = err.Error()
			ok = false
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	if !ok {
		resp.Status = "not ready"
		jsonResp(w, http.StatusServiceUnavailable, resp)
		return
	}
	jsonResp(w, http.StatusOK, resp)
}

// evaluate labels a rank. It needs no dataset.
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	rank, err := rankParam(r)
	if err != nil {
		writeEngineErr(w, r, "evaluate", err)
		return
	}
	jsonResp(w, http.StatusOK, engine.Evaluate(rank, h.policy.Load().Evaluation))
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	out := []alerts.Alert{}
	if h.alerts != nil {
		out = append(out, h.alerts.Active()...)
	}
	jsonResp(w, http.StatusOK, out)
}

func (h *Handler) dataset(r *http.Request, snap *store.Snapshot, _ *Policy) (any, error) {
	return DatasetResponse{
		DatasetSummary: snap.Summary(),
		Stale:          h.store.Stale(),
		Diagnostics:    computeDiagnostics(snap, h.store.Stale()),
	}, nil
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeErr(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	middleware.SetErrorCode(r.Context(), code)
	jsonResp(w, status, ErrorResponse{Error: msg, Code: code})
}

// writeEngineErr maps engine sentinel errors onto HTTP statuses. Faults get a
// generic message; the detail has already been logged by the engine.
func writeEngineErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidMetric):
		writeErr(w, r, http.StatusBadRequest, "invalid_metric", err.Error())
	case errors.Is(err, engine.ErrInvalidParameter):
		writeErr(w, r, http.StatusBadRequest, "invalid_parameter", err.Error())
	case errors.Is(err, engine.ErrInvalidEntity):
		writeErr(w, r, http.StatusNotFound, "invalid_entity", err.Error())
	default:
		if !errors.Is(err, engine.ErrComputation) {
			slog.Error("api: unexpected error", "op", op, "err", err)
		}
		writeErr(w, r, http.StatusInternalServerError, "computation_fault", "internal error")
	}
}

// intParam reads a non-negative integer query parameter, def when absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", engine.ErrInvalidParameter, name, raw)
	}
	return n, nil
}

// boolParam reads a boolean query parameter, def when absent.
func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", engine.ErrInvalidParameter, name, raw)
	}
	return b, nil
}

// metricParam reads the required metric parameter and checks that t carries
// both its value and its rank column.
func metricParam(r *http.Request, t *table.MetricTable) (string, error) {
	metric, err := requiredParam(r, "metric")
	if err != nil {
		return "", err
	}
	if !t.HasMetric(metric) {
		return "", fmt.Errorf("%w: %q needs both a value and a %s column", engine.ErrInvalidMetric, metric, table.RankColumn(metric))
	}
	return metric, nil
}

// requiredParam reads a query parameter that must be present.
func requiredParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", engine.ErrInvalidParameter, name)
	}
	return v, nil
}
