// Package metrics defines the Prometheus collectors for job processing
// and the live update gateway. Each file enqueues its collectors in
// init(); binaries call MustRegister once at startup before exposing
// the /metrics endpoint.
package metrics
