// Package engine implements the review analytics computations over an
// immutable table snapshot.
//
// Every operation is a pure function of its table arguments and parameters:
//
//	Evaluate             rank (0 to 1) to Great/Good/Average/Poor label
//	SelectRanks          a store's best or worst N ranked metrics
//	Highlights           a store's lowest ranked metrics, uncut
//	ClassifyPerformance  improving/worsening labels from period diffs
//	StoreVsBenchmark     store series joined with its store-type benchmark
//	CompanyVsRest        company mean series joined with the rest's mean
//	Distribution         company vs. complement histograms at one period
//	RankCompanies        companies ordered by mean metric rank
//	AverageRank          companies re-ranked on mean issue metrics
//
// plus the store and company summaries in stores.go.
//
// Errors: ErrInvalidMetric and ErrInvalidEntity reject the request. Missing
// data never errors; it yields an empty slice or a sentinel value. Panics are
// recovered per call, logged, and surfaced as ErrComputation.
package engine
