package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reviewpulse/reviewpulse/server/internal/alerts"
	"github.com/reviewpulse/reviewpulse/server/internal/api"
	"github.com/reviewpulse/reviewpulse/server/internal/cache"
	"github.com/reviewpulse/reviewpulse/server/internal/config"
	"github.com/reviewpulse/reviewpulse/server/internal/loader"
	"github.com/reviewpulse/reviewpulse/server/internal/middleware"
	"github.com/reviewpulse/reviewpulse/server/internal/store"
	"github.com/reviewpulse/reviewpulse/server/internal/table"
	"github.com/reviewpulse/reviewpulse/server/internal/tracing"
	"github.com/reviewpulse/reviewpulse/server/internal/ws"
)

const serviceName = "reviewpulse"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	s := cfg.Server

	logger := middleware.NewLogger(s.Env)
	slog.SetDefault(logger)

	slog.Info("reviewpulse-server starting",
		"config", *configPath,
		"http_port", s.HTTPPort,
		"dataset_source", s.Dataset.Source,
		"auth_mode", s.Auth.Mode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      s.Tracing.Enabled,
		Environment:  s.Env,
		Exporter:     s.Tracing.Exporter,
		Endpoint:     s.Tracing.Endpoint,
		SamplingRate: s.Tracing.SamplingRate,
		Insecure:     s.Tracing.Insecure,
	})
	if err != nil {
		slog.Error("failed to start tracing", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Dataset source and the store that serves immutable snapshots of it.
	src, checks, closeSrc, err := openSource(s.Dataset)
	if err != nil {
		slog.Error("failed to open dataset source", "err", err)
		os.Exit(1)
	}
	defer closeSrc()

	tables := loader.Tables{
		Type:        s.Dataset.Tables.Type,
		Company:     s.Dataset.Tables.Company,
		Benchmark:   s.Dataset.Tables.Benchmark,
		Performance: s.Dataset.Tables.Performance,
	}
	schema := table.Schema{IssueMetrics: s.Dataset.Schema.IssueMetrics, MacroIssues: s.Dataset.Schema.MacroIssues}
	st := store.New(func(ctx context.Context) (*table.Dataset, error) {
		return loader.Load(ctx, src, tables, schema)
	}, src.String(), s.Dataset.MaxAge)
	if err := st.Register(reg); err != nil {
		slog.Error("failed to register store metrics", "err", err)
		os.Exit(1)
	}

	policy := api.PolicyFromConfig(s)

	// Alerts engine evaluates rules on every dataset swap.
	alertEngine, err := alerts.New(s.Alerts, policy.Evaluation)
	if err != nil {
		slog.Error("failed to build alert rules", "err", err)
		os.Exit(1)
	}
	st.OnSwap(func(snap *store.Snapshot) { alertEngine.Evaluate(snap.Dataset) })

	// WebSocket hub pushes the dataset summary to dashboard clients.
	hub := ws.New(st, s.WS.Interval)
	st.OnSwap(hub.Notify)

	// Optional Redis response cache.
	var respCache *cache.Cache
	if s.Cache.RedisAddr != "" {
		rdb := cache.NewRedis(s.Cache.RedisAddr, s.Cache.RedisPassword())
		defer rdb.Close() //nolint:errcheck
		respCache = cache.New(rdb, s.Cache.TTL)
		if err := respCache.Register(reg); err != nil {
			slog.Error("failed to register cache metrics", "err", err)
			os.Exit(1)
		}
		checks = append(checks, api.Check{Name: "redis", Fn: respCache.Ping})
		slog.Info("response cache enabled", "addr", s.Cache.RedisAddr, "ttl", s.Cache.TTL)
	}

	handler := api.New(st, policy, api.Options{Alerts: alertEngine, Checks: checks})

	// Thresholds and alert rules are hot-reloadable; everything else needs a restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(next *config.Config) {
			p := api.PolicyFromConfig(next.Server)
			handler.SetPolicy(p)
			if err := alertEngine.SetRules(next.Server.Alerts, p.Evaluation); err != nil {
				slog.Warn("config reload: alert rules rejected", "err", err)
				return
			}
			slog.Info("config reloaded", "rules", len(next.Server.Alerts.Rules))
		})
		if err != nil {
			slog.Warn("config watch stopped", "err", err)
		}
	}()

	// A failed first load is not fatal: analytics routes answer 503 until a
	// reload succeeds.
	if snap, err := st.Reload(ctx); err != nil {
		slog.Error("initial dataset load failed", "source", src.String(), "err", err)
	} else {
		slog.Info("dataset loaded", "version", snap.Version, "stores", snap.Summary().Stores)
	}

	if s.Dataset.RefreshInterval > 0 {
		go st.Run(ctx, s.Dataset.RefreshInterval)
	}
	if s.Dataset.Watch && s.Dataset.Source == "file" {
		go func() {
			if err := st.WatchDir(ctx, s.Dataset.Dir, time.Second); err != nil {
				slog.Warn("dataset watch stopped", "dir", s.Dataset.Dir, "err", err)
			}
		}()
	}
	go hub.Run(ctx)

	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(reg); err != nil {
		slog.Error("failed to register http metrics", "err", err)
		os.Exit(1)
	}

	httpMux := http.NewServeMux()
	httpMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/", respCache.Middleware(handler.CacheVersion)(handler))

	httpSrv := &http.Server{
		Addr: fmt.Sprintf(":%d", s.HTTPPort),
		Handler: middleware.Chain(httpMux,
			middleware.Tracing(serviceName),
			middleware.RequestID,
			middleware.Logging(logger),
			middleware.HTTPMetrics(httpMetrics),
			middleware.APIKey(s.Auth.Mode, s.Auth.EffectiveHeader(), s.Auth.Key()),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", s.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("reviewpulse-server shutting down")

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	alertEngine.Wait()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		slog.Warn("tracing shutdown", "err", err)
	}
}

// openSource builds the configured dataset source, the readiness checks it
// contributes and a close function.
func openSource(d config.DatasetConfig) (loader.Source, []api.Check, func(), error) {
	switch d.Source {
	case "s3":
		src := loader.NewS3Source(loader.S3Config{
			Bucket:    d.S3.Bucket,
			Prefix:    d.S3.Prefix,
			Region:    d.S3.Region,
			Endpoint:  d.S3.Endpoint,
			AccessKey: d.S3.AccessKey(),
			SecretKey: d.S3.SecretKey(),
		})
		return src, nil, func() {}, nil
	case "sql":
		src, err := loader.OpenSQL(d.SQL.Driver, d.SQL.DSN())
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := src.Close(); err != nil {
				slog.Warn("closing dataset database", "err", err)
			}
		}
		return src, []api.Check{{Name: "database", Fn: src.Ping}}, closeFn, nil
	default:
		return loader.NewFileSource(d.Dir), nil, func() {}, nil
	}
}
