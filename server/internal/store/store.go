package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reviewpulse/reviewpulse/pkg/types"
	"github.com/reviewpulse/reviewpulse/server/internal/table"
)

// ErrNotLoaded is returned while no dataset has been loaded yet.
var ErrNotLoaded = errors.New("dataset not loaded")

// Snapshot is one loaded dataset together with its identity.
type Snapshot struct {
	Dataset  *table.Dataset
	Version  string
	LoadedAt time.Time
	Source   string
}

// Summary describes the snapshot for the API and the live hub.
func (s *Snapshot) Summary() types.DatasetSummary {
	t := s.Dataset.Type
	latest, _ := t.Latest()
	return types.DatasetSummary{
		Version:      s.Version,
		LoadedAt:     s.LoadedAt,
		Source:       s.Source,
		Stores:       len(t.Stores()),
		Companies:    len(t.Companies()),
		StoreTypes:   len(t.StoreTypes()),
		Periods:      t.Periods(),
		LatestPeriod: latest,
		Metrics:      t.Metrics(),
		IssueMetrics: t.IssueMetrics(),
	}
}

// LoadFunc fetches a fresh dataset.
type LoadFunc func(ctx context.Context) (*table.Dataset, error)

// Store holds the dataset currently served. Readers take one *Snapshot per
// request and keep it for the whole request; Reload swaps in a new snapshot
// without disturbing them.
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	onSwap  []func(*Snapshot)

	reloadMu sync.Mutex // serializes Reload
	load     LoadFunc
	source   string
	maxAge   time.Duration
	now      func() time.Time // injectable for deterministic tests

	reloads  *prometheus.CounterVec
	loadedAt prometheus.Gauge
}

// New creates an empty Store. maxAge of zero disables staleness checks.
func New(load LoadFunc, source string, maxAge time.Duration) *Store {
	return &Store{
		load:   load,
		source: source,
		maxAge: maxAge,
		now:    time.Now,
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewpulse_dataset_reloads_total",
			Help: "Dataset reload attempts by result.",
		}, []string{"result"}),
		loadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reviewpulse_dataset_loaded_timestamp_seconds",
			Help: "Unix time the served dataset was loaded.",
		}),
	}
}

// Register adds the store's collectors to reg.
func (s *Store) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{s.reloads, s.loadedAt} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// OnSwap registers fn to be called after every successful swap. Hooks run
// synchronously on the reloading goroutine.
func (s *Store) OnSwap(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSwap = append(s.onSwap, fn)
}

// Current returns the snapshot being served, or nil before the first load.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload loads a new dataset and swaps it in. On failure the previous
// snapshot stays in place.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := s.now()
	ds, err := s.load(ctx)
	if err != nil {
		s.reloads.WithLabelValues("error").Inc()
		return nil, err
	}
	snap := &Snapshot{
		Dataset:  ds,
		Version:  uuid.NewString(),
		LoadedAt: s.now(),
		Source:   s.source,
	}

	s.mu.Lock()
	s.current = snap
	hooks := append([]func(*Snapshot){}, s.onSwap...)
	s.mu.Unlock()

	s.reloads.WithLabelValues("ok").Inc()
	s.loadedAt.Set(float64(snap.LoadedAt.Unix()))
	slog.Info("store: dataset swapped",
		"version", snap.Version, "source", s.source, "took", s.now().Sub(start))

	for _, fn := range hooks {
		fn(snap)
	}
	return snap, nil
}

// Stale reports whether the served dataset is missing or older than maxAge.
func (s *Store) Stale() bool {
	cur := s.Current()
	if cur == nil {
		return true
	}
	return s.maxAge > 0 && s.now().Sub(cur.LoadedAt) > s.maxAge
}

// Run reloads the dataset every interval until ctx is cancelled. Failed
// reloads are logged and the previous snapshot keeps serving.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Reload(ctx); err != nil {
				slog.Error("store: periodic reload failed", "err", err)
			}
		}
	}
}
