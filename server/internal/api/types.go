package api

import (
	"github.com/reviewpulse/reviewpulse/pkg/types"
	"github.com/reviewpulse/reviewpulse/server/internal/engine"
)

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status string `json:"STATUS"`
}

// ReadyResponse is the payload for GET /ready.
type ReadyResponse struct {
	Status         string            `json:"status"`
	DatasetVersion string            `json:"dataset_version,omitempty"`
	Checks         map[string]string `json:"checks"`
}

// DatasetResponse is the payload for GET /api/v1/dataset.
type DatasetResponse struct {
	types.DatasetSummary
	Stale       bool             `json:"stale"`
	Diagnostics []DiagnosticHint `json:"diagnostics"`
}

// CompanyStoresResponse is the payload for GET /api/v1/companies/{id}/stores.
type CompanyStoresResponse struct {
	Company        string `json:"company"`
	NumberOfStores int    `json:"number_of_stores"`
	engine.BestWorst
}

// RankingsResponse is the payload for the best/worst/highlights lists.
type RankingsResponse struct {
	StoreID   string                `json:"store_id"`
	Direction string                `json:"direction"`
	Metrics   []engine.RankedMetric `json:"metrics"`
}

// ComparisonResponse is the payload for the benchmark routes.
type ComparisonResponse struct {
	ID     string                   `json:"id"`
	Metric string                   `json:"metric"`
	Points []engine.ComparisonPoint `json:"points"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
