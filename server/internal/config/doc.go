// Package config loads the server configuration from the `server:` section of
// config.yaml.
//
// Sections:
//   - http_port, env   : listener port and log format
//   - auth             : "apikey" or "none"; the key is read from key_env
//   - dataset          : table source (file | s3 | sql), table names, issue
//     schema, refresh interval and staleness limit
//   - thresholds       : evaluation and selection bands, best/worst cutoffs
//   - distribution     : default bins and per-metric histogram ranges
//   - cache            : optional Redis response cache
//   - tracing          : OpenTelemetry exporter
//   - ws, alerts       : live hub interval, ranking alert rules and webhooks
//
// Load(path) applies defaults before unmarshalling, then validates. Watch
// reloads the file on change so thresholds and alert rules can be tuned
// without a restart. Secrets are never stored in the file, only the names of
// the environment variables that hold them.
package config
