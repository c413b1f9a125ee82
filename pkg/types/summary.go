package types

import "time"

// DatasetSummary describes the snapshot currently being served.
type DatasetSummary struct {
	Version      string    `json:"version"`
	LoadedAt     time.Time `json:"loaded_at"`
	Source       string    `json:"source"`
	Stores       int       `json:"stores"`
	Companies    int       `json:"companies"`
	StoreTypes   int       `json:"store_types"`
	Periods      []Period  `json:"periods"`
	LatestPeriod Period    `json:"latest_period"`
	Metrics      []string  `json:"metrics"`
	IssueMetrics []string  `json:"issue_metrics"`
}
