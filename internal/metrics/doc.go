// Package metrics exposes RPC and inter-plugin call metrics for the host runtime.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	rt := host.NewRuntime(registry, store, presenter, host.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder registers its collectors on the registry it is given;
// HTTPHandler serves that registry on the admin server.
package metrics
