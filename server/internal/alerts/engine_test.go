package alerts

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/majewsky/gg/option"

	"github.com/reviewpulse/reviewpulse/server/internal/config"
	"github.com/reviewpulse/reviewpulse/server/internal/engine"
	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// rankedDataset builds a one-period type table. ranks maps store → rating_rank
// and service_issues_rank.
func rankedDataset(t *testing.T, ranks map[string][2]float64) *table.Dataset {
	t.Helper()
	var ids, companies, kinds, periods []string
	var rating, service []option.Option[float64]
	for _, id := range []string{"s1", "s2", "s3"} {
		r, ok := ranks[id]
		if !ok {
			continue
		}
		ids = append(ids, id)
		companies = append(companies, "acme")
		kinds = append(kinds, "grocery")
		periods = append(periods, "2021Q1")
		rating = append(rating, option.Some(r[0]))
		service = append(service, option.Some(r[1]))
	}
	f, err := table.NewFrame(
		table.TextColumn(table.ColStoreID, ids...),
		table.TextColumn(table.ColCompany, companies...),
		table.TextColumn(table.ColStoreType, kinds...),
		table.TextColumn(table.ColPeriod, periods...),
		table.NumberColumn("rating_rank", rating...),
		table.NumberColumn("service_issues_rank", service...),
	)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	mt, err := table.BuildMetricTable(f, table.DefaultSchema())
	if err != nil {
		t.Fatalf("BuildMetricTable: %v", err)
	}
	return &table.Dataset{Type: mt}
}

func newEngine(t *testing.T, cfg config.AlertsConfig) *Engine {
	t.Helper()
	e, err := New(cfg, engine.DefaultEvaluation)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// --- conditions ---

func TestParseCondition_Invalid(t *testing.T) {
	for _, expr := range []string{
		"general_rank",
		"general_rank ~ 0.3",
		"general_rank < low",
		"result > Poor",
	} {
		if _, err := parseCondition(expr); err == nil {
			t.Errorf("parseCondition(%q): expected error", expr)
		}
	}
}

func TestCondition_Eval(t *testing.T) {
	ds := rankedDataset(t, map[string][2]float64{"s1": {0.1, 0.2}, "s2": {0.9, 0.8}})
	facts := func(store string) storeFacts {
		row, _ := ds.Type.StoreRowAt(store, "2021Q1")
		return storeFacts{ds: ds, store: store, latest: "2021Q1", row: row, th: engine.DefaultEvaluation}
	}

	tests := []struct {
		expr  string
		store string
		want  bool
	}{
		{"general_rank < 0.3", "s1", true},
		{"general_rank < 0.3", "s2", false},
		{"rating_rank <= 0.1", "s1", true},
		{"result == Poor", "s1", true},
		{"result == Good", "s2", true},
		{"result != Poor", "s2", true},
		{"company_general_rank < 0.3", "s1", false}, // no company table
		{"missing_rank < 1", "s1", false},
	}
	for _, tc := range tests {
		c, err := parseCondition(tc.expr)
		if err != nil {
			t.Fatalf("parseCondition(%q): %v", tc.expr, err)
		}
		if got, _ := c.eval(facts(tc.store)); got != tc.want {
			t.Errorf("%s on %s: got %v, want %v", tc.expr, tc.store, got, tc.want)
		}
	}
}

// --- engine ---

func TestNew_RejectsBadCondition(t *testing.T) {
	_, err := New(config.AlertsConfig{Rules: []config.AlertRule{{Name: "x", Condition: "rank ?? 1"}}}, engine.DefaultEvaluation)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestEvaluate_FireAndResolve(t *testing.T) {
	e := newEngine(t, config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "low-general", Condition: "general_rank < 0.3", Severity: "critical"},
	}})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return base }

	e.Evaluate(rankedDataset(t, map[string][2]float64{"s1": {0.1, 0.2}, "s2": {0.9, 0.8}}))
	active := e.Active()
	if len(active) != 1 {
		t.Fatalf("active: got %d, want 1", len(active))
	}
	a := active[0]
	if a.StoreID != "s1" || a.Company != "acme" || a.State != "firing" || a.Severity != "critical" {
		t.Errorf("alert: got %+v", a)
	}

	// Still firing: no duplicate.
	e.Evaluate(rankedDataset(t, map[string][2]float64{"s1": {0.1, 0.2}, "s2": {0.9, 0.8}}))
	if got := len(e.Active()); got != 1 {
		t.Errorf("active after repeat: got %d, want 1", got)
	}

	// s1 recovers.
	e.now = func() time.Time { return base.Add(time.Hour) }
	e.Evaluate(rankedDataset(t, map[string][2]float64{"s1": {0.9, 0.9}, "s2": {0.9, 0.8}}))
	active = e.Active()
	if len(active) != 1 || active[0].State != "resolved" || active[0].ResolvedAt == nil {
		t.Fatalf("after recovery: got %+v", active)
	}

	// Resolved alerts age out of the recent window.
	e.now = func() time.Time { return base.Add(48 * time.Hour) }
	if got := len(e.Active()); got != 0 {
		t.Errorf("after window: got %d alerts, want 0", got)
	}
}

func TestEvaluate_Cooldown(t *testing.T) {
	e := newEngine(t, config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "poor", Condition: "result == Poor", Cooldown: 2 * time.Hour},
	}})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bad := map[string][2]float64{"s1": {0.1, 0.1}}
	good := map[string][2]float64{"s1": {0.9, 0.9}}

	e.now = func() time.Time { return base }
	e.Evaluate(rankedDataset(t, bad))
	e.now = func() time.Time { return base.Add(30 * time.Minute) }
	e.Evaluate(rankedDataset(t, good))
	e.now = func() time.Time { return base.Add(time.Hour) }
	e.Evaluate(rankedDataset(t, bad))

	for _, a := range e.Active() {
		if a.State == "firing" {
			t.Fatal("alert re-fired inside cooldown")
		}
	}

	e.now = func() time.Time { return base.Add(3 * time.Hour) }
	e.Evaluate(rankedDataset(t, bad))
	var firing int
	for _, a := range e.Active() {
		if a.State == "firing" {
			firing++
		}
	}
	if firing != 1 {
		t.Errorf("firing after cooldown: got %d, want 1", firing)
	}
}

func TestSetRules_RemovedRuleResolves(t *testing.T) {
	e := newEngine(t, config.AlertsConfig{Rules: []config.AlertRule{
		{Name: "low-rating", Condition: "rating_rank < 0.2"},
	}})
	ds := rankedDataset(t, map[string][2]float64{"s1": {0.1, 0.5}})
	e.Evaluate(ds)

	if err := e.SetRules(config.AlertsConfig{}, engine.DefaultEvaluation); err != nil {
		t.Fatalf("SetRules: %v", err)
	}
	e.Evaluate(ds)
	for _, a := range e.Active() {
		if a.State != "resolved" {
			t.Errorf("alert %s: got state %s, want resolved", a.RuleName, a.State)
		}
	}
}

// --- webhooks ---

func TestWebhook_Delivery(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
	}))
	defer srv.Close()
	t.Setenv("TEST_SLACK_URL", srv.URL)
	t.Setenv("TEST_HTTP_URL", srv.URL)

	e := newEngine(t, config.AlertsConfig{
		Rules: []config.AlertRule{{Name: "low-general", Condition: "general_rank < 0.3"}},
		Webhooks: []config.WebhookConfig{
			{Type: "slack", URLEnv: "TEST_SLACK_URL"},
			{Type: "http", URLEnv: "TEST_HTTP_URL"},
			{Type: "carrier-pigeon", URLEnv: "TEST_HTTP_URL"},
		},
	})
	e.Evaluate(rankedDataset(t, map[string][2]float64{"s1": {0.1, 0.2}}))
	e.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("deliveries: got %d, want 2", len(bodies))
	}
	joined := strings.Join(bodies, "\n")
	if !strings.Contains(joined, `"text":"*[WARNING]*`) {
		t.Errorf("slack payload missing: %s", joined)
	}
	if !strings.Contains(joined, `"store_id":"s1"`) {
		t.Errorf("http payload missing alert: %s", joined)
	}
}

func TestWebhook_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := newEngine(t, config.AlertsConfig{})
	if err := e.post(srv.URL, []byte(`{}`)); err == nil {
		t.Error("expected error for HTTP 502")
	}
}

func TestPayloads(t *testing.T) {
	a := &Alert{RuleName: "poor-rating", StoreID: "s1", Company: "acme", Severity: "critical", Message: "rating fell", State: "firing"}

	if got := slackPayload(a).(map[string]string)["text"]; got != "*[CRITICAL]* rating fell" {
		t.Errorf("slack firing: got %q", got)
	}
	if got := teamsPayload(a).(map[string]any)["themeColor"]; got != "FF4F6A" {
		t.Errorf("teams color: got %v", got)
	}

	a.State = "resolved"
	if got := slackPayload(a).(map[string]string)["text"]; got != "*[RESOLVED]* poor-rating on store s1 (acme)" {
		t.Errorf("slack resolved: got %q", got)
	}

	a.Severity = "page-me"
	if got := styleOf(a.Severity).color; got != "00D4FF" {
		t.Errorf("unknown severity color: got %q, want info", got)
	}
}
