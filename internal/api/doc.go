// Package api contains the HTTP handlers exposed by the service: the
// on-demand occurrence-processing trigger and the next-delivery forecast.
// Handlers translate between HTTP and the service layer; all occurrence
// semantics live in internal/service/occurrence.
package api
