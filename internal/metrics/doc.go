// Package metrics provides Prometheus instrumentation for the cache engine
// and a runtime-backed system metrics sampler used by strategy adaptation.
package metrics
