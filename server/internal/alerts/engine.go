package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/reviewpulse/reviewpulse/server/internal/config"
	"github.com/reviewpulse/reviewpulse/server/internal/engine"
	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

const (
	maxHistoryLen = 200
	recentWindow  = 24 * time.Hour
)

// Alert is one firing (or recently resolved) rule for one store.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	StoreID    string     `json:"store_id"`
	Company    string     `json:"company"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates ranking rules per store. It is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []rule
	webhooks []config.WebhookConfig
	th       engine.Thresholds

	active   map[string]*Alert    // key: "rule:store"
	lastFire map[string]time.Time // per key, for cooldown
	history  []*Alert

	client *http.Client
	now    func() time.Time
	wg     sync.WaitGroup
}

// New creates an Engine. th labels general ranks for "result" conditions.
func New(cfg config.AlertsConfig, th engine.Thresholds) (*Engine, error) {
	e := &Engine{
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	if err := e.SetRules(cfg, th); err != nil {
		return nil, err
	}
	return e, nil
}

// SetRules replaces rules, webhooks and thresholds. Alerts of rules that no
// longer exist resolve on the next Evaluate.
func (e *Engine) SetRules(cfg config.AlertsConfig, th engine.Thresholds) error {
	rules := make([]rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		c, err := parseCondition(r.Condition)
		if err != nil {
			return fmt.Errorf("alerts: rule %q: %w", r.Name, err)
		}
		if r.Cooldown <= 0 {
			r.Cooldown = config.DefaultAlertCooldown
		}
		if r.Severity == "" {
			r.Severity = "warning"
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
	e.webhooks = cfg.Webhooks
	e.th = th
	return nil
}

// Evaluate checks every rule against every store at the dataset's latest
// period. Newly firing alerts are stored and delivered; firing alerts whose
// condition no longer holds are resolved and delivered.
func (e *Engine) Evaluate(ds *table.Dataset) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	seen := make(map[string]bool)

	latest, ok := ds.Type.Latest()
	if ok && len(e.rules) > 0 {
		for _, storeID := range ds.Type.Stores() {
			row, ok := ds.Type.StoreRowAt(storeID, latest)
			if !ok {
				continue
			}
			facts := storeFacts{ds: ds, store: storeID, latest: latest, row: row, th: e.th}
			company := ds.Type.Row(row).Company

			for _, r := range e.rules {
				key := r.Name + ":" + storeID
				fires, value := r.cond.eval(facts)
				if !fires {
					continue
				}
				seen[key] = true
				if _, firing := e.active[key]; firing {
					continue
				}
				if now.Sub(e.lastFire[key]) <= r.Cooldown {
					continue
				}
				a := &Alert{
					ID:       fmt.Sprintf("%s:%s:%d", r.Name, storeID, now.UnixNano()),
					RuleName: r.Name,
					StoreID:  storeID,
					Company:  company,
					Severity: r.Severity,
					Value:    value,
					Message: fmt.Sprintf("[%s] %s fired on store %s (%s): %s, value %.2f",
						r.Severity, r.Name, storeID, company, r.Condition, value),
					FiredAt: now,
					State:   "firing",
				}
				e.active[key] = a
				e.lastFire[key] = now
				slog.Warn("alert fired", "rule", r.Name, "store", storeID, "value", value, "severity", r.Severity)
				e.deliverAsync(*a)
			}
		}
	}

	for key, a := range e.active {
		if seen[key] {
			continue
		}
		resolved := now
		a.State = "resolved"
		a.ResolvedAt = &resolved
		delete(e.active, key)
		e.history = append(e.history, a)
		if len(e.history) > maxHistoryLen {
			e.history = e.history[len(e.history)-maxHistoryLen:]
		}
		slog.Info("alert resolved", "rule", a.RuleName, "store", a.StoreID)
		e.deliverAsync(*a)
	}
}

// Active returns copies of all firing alerts plus alerts resolved within the
// last day, newest first.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FiredAt.Equal(out[j].FiredAt) {
			return out[i].FiredAt.After(out[j].FiredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Wait blocks until in-flight webhook deliveries finish.
func (e *Engine) Wait() { e.wg.Wait() }

// deliverAsync must be called with e.mu held.
func (e *Engine) deliverAsync(a Alert) {
	if len(e.webhooks) == 0 {
		return
	}
	hooks := append([]config.WebhookConfig(nil), e.webhooks...)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliver(hooks, &a)
	}()
}
