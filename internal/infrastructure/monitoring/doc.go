/*
Package monitoring provides Prometheus metrics for the viewer.

# Overview

Metrics owns a private registry so tests and multiple instances never collide
on the global default. It implements ipc.Recorder, which lets both bridge
ends report traffic directly:

	metrics := monitoring.NewMetrics()
	hb := host.New(current, ipc.WithRecorder(metrics))

# Metrics

  - markread_http_*: request counts, latency and sizes by route template
  - markread_ipc_messages_sent_total / _received_total by direction and mode
  - markread_ipc_fragments_total and markread_ipc_payload_bytes
  - markread_ipc_drops_total by reason (the ipc error kind)
  - markread_ipc_listener_failures_total by channel
  - markread_ws_connections and markread_ws_messages_total

# Endpoint

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", metrics.GinHandler())
*/
package monitoring
