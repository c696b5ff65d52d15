// Package http implements the HTTP handlers of the solar analysis API.
// Handlers are a thin layer between the chi router and the services
// package: they decode and validate query strings and JSON bodies, call
// one service method, and render the result.
//
// # Endpoints
//
//	GET    /api/health, /api/health/ready, /api/health/live
//	GET    /api/countries            loaded datasets and their time ranges
//	GET    /api/report               the full cached analysis report
//	GET    /api/summary              ?metric=GHI&country=benin,togo
//	GET    /api/ranking              ?metric=GHI
//	GET    /api/tests                ?metric=GHI (ANOVA and Kruskal-Wallis)
//	GET    /api/correlation
//	GET    /api/aggregate            ?period=daily&metric=GHI,Tamb&country=togo
//	GET    /api/diurnal              ?metric=GHI&country=benin
//	GET    /api/recommendations
//	POST   /api/refresh              reload the cleaned files
//	GET    /api/operations           recent pipeline runs
//	POST   /api/operations           {"step":"clean","wait":true}
//	GET    /api/operations/steps
//	GET    /api/operations/{id}
//	POST   /api/operations/{id}/cancel
//
// # Responses
//
// Successful responses use the envelope from pkg/contracts/api/v1:
//
//	{"status": "success", "data": ..., "count": 3}
//
// Failures are RFC 7807 problem documents rendered by the errors package.
// Service sentinels such as services.ErrNoData are mapped to API errors in
// mapServiceError so every handler reports them the same way.
package http
