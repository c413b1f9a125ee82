package api

import (
	"net/http"

	"github.com/reviewpulse/reviewpulse/pkg/types"
	"github.com/reviewpulse/reviewpulse/server/internal/engine"
	"github.com/reviewpulse/reviewpulse/server/internal/store"
)

func (h *Handler) rankCompanies(r *http.Request, snap *store.Snapshot, _ *Policy) (any, error) {
	metric, err := metricParam(r, snap.Dataset.Type)
	if err != nil {
		return nil, err
	}
	return engine.RankCompanies(snap.Dataset.Type, metric)
}

func (h *Handler) averageRank(_ *http.Request, snap *store.Snapshot, _ *Policy) (any, error) {
	return engine.AverageRank(snap.Dataset.Type)
}

func (h *Handler) companyBenchmark(r *http.Request, snap *store.Snapshot, _ *Policy) (any, error) {
	id := r.PathValue("id")
	metric, err := metricParam(r, snap.Dataset.Type)
	if err != nil {
		return nil, err
	}
	points, err := engine.CompanyVsRest(snap.Dataset.Type, id, metric)
	if err != nil {
		return nil, err
	}
	return ComparisonResponse{ID: id, Metric: metric, Points: points}, nil
}

func (h *Handler) companyDistribution(r *http.Request, snap *store.Snapshot, p *Policy) (any, error) {
	metric, err := metricParam(r, snap.Dataset.Type)
	if err != nil {
		return nil, err
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = types.Latest
	}
	bins, err := intParam(r, "bins", p.Bins)
	if err != nil {
		return nil, err
	}
	return engine.Distribution(snap.Dataset.Type, metric, r.PathValue("id"), period, bins, p.Ranges)
}

func (h *Handler) companyStores(r *http.Request, snap *store.Snapshot, _ *Policy) (any, error) {
	id := r.PathValue("id")
	n, err := engine.NumberOfStores(snap.Dataset.Type, id)
	if err != nil {
		return nil, err
	}
	bw, err := engine.BestWorstStore(snap.Dataset.Type, id)
	if err != nil {
		return nil, err
	}
	return CompanyStoresResponse{Company: id, NumberOfStores: n, BestWorst: bw}, nil
}

func (h *Handler) companyPerformance(r *http.Request, snap *store.Snapshot, p *Policy) (any, error) {
	top, err := intParam(r, "top", p.DefaultTop)
	if err != nil {
		return nil, err
	}
	return engine.CompanyGeneralPerformance(snap.Dataset.Performance, r.PathValue("id"), top)
}
