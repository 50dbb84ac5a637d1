// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors are grouped per feature and registered through promauto against an explicit
// Registerer, so tests can use a private registry and the server can use the default one.
package metrics
