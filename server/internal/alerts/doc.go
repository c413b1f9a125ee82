// Package alerts evaluates ranking rules against every store each time a new
// dataset is swapped in, and delivers webhook notifications (Slack, Teams or
// generic HTTP) when a rule starts or stops firing for a store.
package alerts
