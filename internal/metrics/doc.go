/*
Package metrics collects read path statistics and exports them to Prometheus.

# Overview

A Collector is shared by every stream of a session. Streams report through the
types.Statistics and types.OperationObserver interfaces, so the stream package never
imports Prometheus.

	┌──────────┐  IncrementBytesRead / IncrementReadOps   ┌─────────────┐
	│  Stream  │ ───────────────────────────────────────▶ │  Collector  │
	│          │  ObserveOperation                        │             │
	└──────────┘                                          └──────┬──────┘
	                                                             │
	                                   ┌─────────────────────────┴───────┐
	                                   │                                 │
	                            ┌──────▼───────┐               ┌─────────▼─────────┐
	                            │  Prometheus  │               │  HTTP Endpoints   │
	                            │   Registry   │               │  /metrics         │
	                            └──────────────┘               │  /health          │
	                                                           │  /debug/operations│
	                                                           └───────────────────┘

# Usage

	collector, err := metrics.NewCollector(metrics.NewDefaultConfig())
	if err != nil {
		return err
	}
	http.Handle("/", collector.Handler())

When Config.Enabled is false no registry is created. Totals are still kept in memory and
are available from Snapshot.

# Exported Metrics

	{namespace}_{subsystem}_bytes_read_total
	{namespace}_{subsystem}_read_operations_total
	{namespace}_{subsystem}_stream_operations_total{operation,status}
	{namespace}_{subsystem}_stream_operation_duration_seconds{operation}
	{namespace}_{subsystem}_errors_total{operation,type}

The type label of errors_total is the error category from pkg/errors (argument, io,
state, internal) or "other" for errors without one.
*/
package metrics
