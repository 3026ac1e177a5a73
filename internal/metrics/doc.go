// Package metrics registers the console's Prometheus collectors. Collectors
// are instance-scoped so tests can register against a fresh registry.
package metrics
