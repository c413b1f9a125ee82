// Package table holds the immutable, in-memory snapshots the analytics engine
// reads: the per-store MetricTable, the per-store-type BenchmarkTable and the
// PerformanceView of precomputed trend scores.
//
// Tables are built once from a Frame (a loosely typed column set produced by
// the loader) and never mutated afterwards, so any number of goroutines may
// read the same table without locking.
//
// Row layout of a MetricTable:
//   - store_id, company, store_type: identity columns (text)
//   - date_comment: period key, normalized to a canonical types.Period
//   - latitude, longitude: optional store location
//   - <metric>: numeric value columns, nullable
//   - <metric>_rank: precomputed percentile rank in [0, 1], nullable
//
// A Schema declares which value columns are issue metrics and which of those
// are macro roll-ups. It is validated when the table is built.
package table
