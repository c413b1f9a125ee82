package api

import (
	"net/http"

	"github.com/reviewpulse/reviewpulse/server/internal/engine"
	"github.com/reviewpulse/reviewpulse/server/internal/store"
)

func (h *Handler) storeRankings(r *http.Request, snap *store.Snapshot, p *Policy) (any, error) {
	id := r.PathValue("id")
	dir, err := engine.ParseDirection(r.PathValue("direction"))
	if err != nil {
		return nil, err
	}
	n, err := intParam(r, "n", p.DefaultTop)
	if err != nil {
		return nil, err
	}
	ranks, err := engine.SelectRanks(snap.Dataset.Type, id, n, dir, p.Selection)
	if err != nil {
		return nil, err
	}
	return RankingsResponse{StoreID: id, Direction: dir.String(), Metrics: ranks}, nil
}

func (h *Handler) storeHighlights(r *http.Request, snap *store.Snapshot, p *Policy) (any, error) {
	id := r.PathValue("id")
	n, err := intParam(r, "n", p.Highlights)
	if err != nil {
		return nil, err
	}
	ranks, err := engine.Highlights(snap.Dataset.Type, id, n, p.Selection.Labels)
	if err != nil {
		return nil, err
	}
	return RankingsResponse{StoreID: id, Direction: "highlights", Metrics: ranks}, nil
}

func (h *Handler) storePerformance(r *http.Request, snap *store.Snapshot, _ *Policy) (any, error) {
	exclude, err := boolParam(r, "exclude_macro", true)
	if err != nil {
		return nil, err
	}
	return engine.ClassifyPerformance(snap.Dataset.Type, r.PathValue("id"), exclude)
}

func (h *Handler) storeBenchmark(r *http.Request, snap *store.Snapshot, _ *Policy) (any, error) {
	id := r.PathValue("id")
	metric, err := metricParam(r, snap.Dataset.Type)
	if err != nil {
		return nil, err
	}
	points, err := engine.StoreVsBenchmark(snap.Dataset.Type, snap.Dataset.Benchmark, id, metric)
	if err != nil {
		return nil, err
	}
	return ComparisonResponse{ID: id, Metric: metric, Points: points}, nil
}

func (h *Handler) storeMainRankings(r *http.Request, snap *store.Snapshot, p *Policy) (any, error) {
	return engine.StoreMainRankings(snap.Dataset, r.PathValue("id"), p.Evaluation)
}

func (h *Handler) storeGeneralRankings(r *http.Request, snap *store.Snapshot, p *Policy) (any, error) {
	return engine.StoreGeneralRankings(snap.Dataset, r.PathValue("id"), p.Evaluation)
}

func (h *Handler) storeLocation(r *http.Request, snap *store.Snapshot, _ *Policy) (any, error) {
	return engine.StoreLocation(snap.Dataset.Type, r.PathValue("id"))
}
