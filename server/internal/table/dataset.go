package table

// Dataset bundles the tables served together. Company and Performance are
// optional.
type Dataset struct {
	// Type ranks each store within its store type.
	Type *MetricTable
	// Company ranks each store within its company.
	Company     *MetricTable
	Benchmark   *BenchmarkTable
	Performance *PerformanceView
}
