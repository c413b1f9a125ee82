// Package api implements the HTTP REST API of reviewpulse-server.
//
// New(store, policy, opts) returns an http.Handler that serves:
//
//	GET /health                                   liveness
//	GET /ready                                    dataset loaded, fresh, deps reachable
//	GET /api/v1/evaluate?rank=                    label a rank
//	GET /api/v1/dataset                           summary of the served dataset
//	GET /api/v1/alerts                            firing and recently resolved alerts
//	GET /api/v1/companies/rank?metric=            companies by mean metric rank
//	GET /api/v1/companies/average-rank            companies by mean issue value
//	GET /api/v1/companies/{id}/benchmark?metric=  company vs. everyone else
//	GET /api/v1/companies/{id}/distribution       histogram vs. everyone else
//	GET /api/v1/companies/{id}/stores             store count, best and worst store
//	GET /api/v1/companies/{id}/performance?top=   most improving/worsening stores
//	GET /api/v1/stores/{id}/rankings/{best|worst}?n=
//	GET /api/v1/stores/{id}/highlights
//	GET /api/v1/stores/{id}/performance?exclude_macro=
//	GET /api/v1/stores/{id}/benchmark?metric=
//	GET /api/v1/stores/{id}/main-rankings
//	GET /api/v1/stores/{id}/general-rankings
//	GET /api/v1/stores/{id}/location
//
// All endpoints respond with Content-Type: application/json and return 405 for
// non-GET methods. Analytics endpoints answer 503 until the first dataset is
// loaded. Engine errors map to 400 (invalid metric or parameter), 404
// (unknown store or company) and 500 (computation fault), with a body of
// {"error": "...", "code": "..."}. Routes taking a metric require both its
// value and its rank column.
//
// Each request reads exactly one store snapshot, so a concurrent reload is
// never observed mid-computation.
package api
