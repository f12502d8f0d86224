// Package server is the loopback HTTP surface the desktop shell talks to: a
// JSON POST dispatcher over the command service, health and readiness probes,
// Prometheus metrics, and a WebSocket stream pushing sync and card-change
// notifications. The listener binds to 127.0.0.1 only; nothing here is meant
// to be reachable from the network.
package server
