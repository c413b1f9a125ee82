package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// AlertsConfig holds ranking alert rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one per-store alert condition evaluated on every dataset
// swap.
type AlertRule struct {
	// Name is the human-readable alert identifier, used with the store id as
	// the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "general_rank < 0.3",
	// "rating_rank <= 0.2", "result == Poor".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration. Defaults to 24h.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string { return env(w.URLEnv) }

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultMaxAge         = 24 * time.Hour
	DefaultHighlights     = 7
	DefaultTop            = 3
	DefaultBins           = 10
	DefaultCacheTTL       = 5 * time.Minute
	DefaultBroadcastEvery = 30 * time.Second
	DefaultAlertCooldown  = 24 * time.Hour
)

// Config holds the server configuration parsed from the `server:` section of
// config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Env selects the log format: "development" logs text, anything else JSON.
	Env string `yaml:"env"`

	Auth         AuthConfig         `yaml:"auth"`
	Dataset      DatasetConfig      `yaml:"dataset"`
	Thresholds   ThresholdsConfig   `yaml:"thresholds"`
	Distribution DistributionConfig `yaml:"distribution"`
	Cache        CacheConfig        `yaml:"cache"`
	Tracing      TracingConfig      `yaml:"tracing"`
	WS           WSConfig           `yaml:"ws"`
	Alerts       AlertsConfig       `yaml:"alerts"`
}

// AuthConfig controls client authentication on the REST API.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string { return env(a.KeyEnv) }

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// DatasetConfig says where the analytics tables come from and how often they
// are refreshed.
type DatasetConfig struct {
	// Source is one of: file | s3 | sql.
	Source string `yaml:"source"`

	// Dir is the directory holding <table>.csv or <table>.csv.zst files.
	Dir string `yaml:"dir"`

	// Watch reloads the dataset when a file in Dir changes (file source only).
	Watch bool `yaml:"watch"`

	// RefreshInterval reloads the dataset periodically. Zero disables.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// MaxAge marks the server unready when the dataset is older. Zero disables.
	MaxAge time.Duration `yaml:"max_age"`

	Tables TablesConfig `yaml:"tables"`
	Schema SchemaConfig `yaml:"schema"`
	S3     S3Config     `yaml:"s3"`
	SQL    SQLConfig    `yaml:"sql"`
}

// TablesConfig names the source objects. Company and Performance may be
// set to "" to skip them.
type TablesConfig struct {
	Type        string `yaml:"type"`
	Company     string `yaml:"company"`
	Benchmark   string `yaml:"benchmark"`
	Performance string `yaml:"performance"`
}

// SchemaConfig declares the issue metrics. An empty IssueMetrics derives them
// from column names containing "issues".
type SchemaConfig struct {
	IssueMetrics []string `yaml:"issue_metrics"`
	MacroIssues  []string `yaml:"macro_issues"`
}

// S3Config locates dataset objects in a bucket.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
}

// AccessKey returns the access key id resolved from the environment.
func (s S3Config) AccessKey() string { return env(s.AccessKeyEnv) }

// SecretKey returns the secret access key resolved from the environment.
func (s S3Config) SecretKey() string { return env(s.SecretKeyEnv) }

// SQLConfig locates dataset tables in a database.
type SQLConfig struct {
	// Driver is one of: postgres | sqlite3.
	Driver string `yaml:"driver"`

	// DSNEnv is the name of the environment variable that holds the DSN.
	DSNEnv string `yaml:"dsn_env"`
}

// DSN returns the data source name resolved from the environment.
func (s SQLConfig) DSN() string { return env(s.DSNEnv) }

// Bands is one great/good/poor threshold set.
type Bands struct {
	Great float64 `yaml:"great"`
	Good  float64 `yaml:"good"`
	Poor  float64 `yaml:"poor"`
}

// ThresholdsConfig holds the rank bands and selection policy.
type ThresholdsConfig struct {
	// Evaluation bands general rankings (default 0.95/0.7/0.3).
	Evaluation Bands `yaml:"evaluation"`

	// Selection bands best/worst metric lists (default 0.95/0.8/0.2).
	Selection Bands `yaml:"selection"`

	BestCutoff  float64 `yaml:"best_cutoff"`
	WorstCutoff float64 `yaml:"worst_cutoff"`

	// Highlights is the number of metrics listed as store highlights.
	Highlights int `yaml:"highlights"`

	// DefaultTop is the default n for best/worst lists and company performance.
	DefaultTop int `yaml:"default_top"`
}

// DistributionConfig holds histogram defaults. Ranges are [lo, hi] pairs.
type DistributionConfig struct {
	DefaultBins  int                  `yaml:"default_bins"`
	DefaultRange []float64            `yaml:"default_range"`
	Ranges       map[string][]float64 `yaml:"ranges"`
}

// CacheConfig enables the Redis response cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr        string        `yaml:"redis_addr"`
	RedisPasswordEnv string        `yaml:"redis_password_env"`
	TTL              time.Duration `yaml:"ttl"`
}

// RedisPassword returns the Redis password resolved from the environment.
func (c CacheConfig) RedisPassword() string { return env(c.RedisPasswordEnv) }

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is one of: otlp-http | otlp-grpc.
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Insecure     bool    `yaml:"insecure"`
}

// WSConfig controls the live update hub.
type WSConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Env:      "production",
			Dataset: DatasetConfig{
				Source: "file",
				Dir:    "./data",
				MaxAge: DefaultMaxAge,
				Tables: TablesConfig{
					Type:        "type_ts",
					Company:     "company_ts",
					Benchmark:   "benchmark_ts",
					Performance: "stores_performance",
				},
				Schema: SchemaConfig{MacroIssues: []string{"product_issues", "business_issues"}},
				SQL:    SQLConfig{Driver: "postgres"},
			},
			Thresholds: ThresholdsConfig{
				Evaluation:  Bands{Great: 0.95, Good: 0.7, Poor: 0.3},
				Selection:   Bands{Great: 0.95, Good: 0.8, Poor: 0.2},
				BestCutoff:  0.4,
				WorstCutoff: 0.7,
				Highlights:  DefaultHighlights,
				DefaultTop:  DefaultTop,
			},
			Distribution: DistributionConfig{
				DefaultBins:  DefaultBins,
				DefaultRange: []float64{0, 0.5},
				Ranges:       map[string][]float64{"rating": {0, 5}},
			},
			Cache:   CacheConfig{TTL: DefaultCacheTTL},
			Tracing: TracingConfig{Exporter: "otlp-http", SamplingRate: 1.0},
			WS:      WSConfig{Interval: DefaultBroadcastEvery},
		},
	}
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := &cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}

	d := &s.Dataset
	switch d.Source {
	case "file":
		if d.Dir == "" {
			return fmt.Errorf("server.dataset.dir is required for the file source")
		}
	case "s3":
		if d.S3.Bucket == "" {
			return fmt.Errorf("server.dataset.s3.bucket is required for the s3 source")
		}
	case "sql":
		switch d.SQL.Driver {
		case "postgres", "sqlite3":
		default:
			return fmt.Errorf("server.dataset.sql.driver %q unknown: want postgres|sqlite3", d.SQL.Driver)
		}
	default:
		return fmt.Errorf("server.dataset.source %q unknown: want file|s3|sql", d.Source)
	}
	if d.Tables.Type == "" || d.Tables.Benchmark == "" {
		return fmt.Errorf("server.dataset.tables.type and .benchmark are required")
	}
	for _, name := range []string{d.Tables.Type, d.Tables.Company, d.Tables.Benchmark, d.Tables.Performance} {
		if name != "" && !tableNameRe.MatchString(name) {
			return fmt.Errorf("server.dataset.tables: invalid table name %q", name)
		}
	}
	if d.RefreshInterval < 0 || d.MaxAge < 0 {
		return fmt.Errorf("server.dataset.refresh_interval and max_age must not be negative")
	}

	th := &s.Thresholds
	for name, b := range map[string]Bands{"evaluation": th.Evaluation, "selection": th.Selection} {
		if b.Poor < 0 || b.Great > 1 || !(b.Poor < b.Good && b.Good <= b.Great) {
			return fmt.Errorf("server.thresholds.%s must satisfy 0 <= poor < good <= great <= 1", name)
		}
	}
	if th.Highlights < 0 || th.DefaultTop < 0 {
		return fmt.Errorf("server.thresholds.highlights and default_top must not be negative")
	}

	if s.Distribution.DefaultBins <= 0 {
		return fmt.Errorf("server.distribution.default_bins must be positive")
	}
	if err := checkRange("default_range", s.Distribution.DefaultRange); err != nil {
		return err
	}
	for metric, r := range s.Distribution.Ranges {
		if err := checkRange("ranges."+metric, r); err != nil {
			return err
		}
	}

	switch s.Tracing.Exporter {
	case "otlp-http", "otlp-grpc":
	default:
		return fmt.Errorf("server.tracing.exporter %q unknown: want otlp-http|otlp-grpc", s.Tracing.Exporter)
	}
	if s.Tracing.SamplingRate < 0 || s.Tracing.SamplingRate > 1 {
		return fmt.Errorf("server.tracing.sampling_rate must lie in [0, 1]")
	}
	if s.WS.Interval <= 0 {
		return fmt.Errorf("server.ws.interval must be positive")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" || r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name and condition are required", i)
		}
	}
	return nil
}

func checkRange(name string, r []float64) error {
	if len(r) != 2 || !(r[1] > r[0]) {
		return fmt.Errorf("server.distribution.%s must be [lo, hi] with hi > lo", name)
	}
	return nil
}

func env(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
