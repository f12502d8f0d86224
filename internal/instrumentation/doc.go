// Package instrumentation provides OpenTelemetry metrics for the sync
// pipeline, the Google API clients, and the loopback UI server.
//
// Metrics are collected through an OpenTelemetry meter provider and exported
// via the Prometheus exporter; the loopback server exposes them on /metrics.
// The Metrics recorder is nil-safe: components hold a *Metrics that may be
// nil (or zero) when instrumentation is disabled, and every Record method is
// a no-op in that case, so call sites never need to branch.
//
// Label cardinality is kept low by default. Account identity only ever
// reaches a metric as an email domain, and only when detailed labels are
// explicitly enabled.
package instrumentation
