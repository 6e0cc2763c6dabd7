// Package metrics exposes the pipeline's Prometheus counters.
package metrics
