// Package sinks provides auth.ActivitySink implementations that forward
// account activity to Redis streams, watermill publishers and Prometheus.
package sinks
