package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "snapbridge"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	rpcDuration    *prom.HistogramVec
	rpcResults     *prom.CounterVec
	interPlugin    *prom.CounterVec
	installedSnaps prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		rpcDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Duration of snap RPC handling",
			Buckets:   prom.DefBuckets,
		}, []string{"snap", "method"}),
		rpcResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_results_total",
			Help:      "Snap RPC results by outcome",
		}, []string{"snap", "method", "result"}),
		interPlugin: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "inter_plugin_calls_total",
			Help:      "Snap-to-snap calls by target and outcome",
		}, []string{"target", "result"}),
		installedSnaps: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "installed_snaps",
			Help:      "Number of snaps currently installed in the host",
		}),
	}
	reg.MustRegister(pr.rpcDuration, pr.rpcResults, pr.interPlugin, pr.installedSnaps)
	return pr
}

func (p *PrometheusRecorder) ObserveRPCDuration(snapID, method string, d time.Duration) {
	if p == nil || p.rpcDuration == nil {
		return
	}
	p.rpcDuration.WithLabelValues(snapID, method).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRPCResult(snapID, method string, result ResultLabel) {
	if p == nil || p.rpcResults == nil {
		return
	}
	p.rpcResults.WithLabelValues(snapID, method, string(result)).Inc()
}

func (p *PrometheusRecorder) IncInterPluginCall(target string, result ResultLabel) {
	if p == nil || p.interPlugin == nil {
		return
	}
	p.interPlugin.WithLabelValues(target, string(result)).Inc()
}

func (p *PrometheusRecorder) SetInstalledSnaps(n int) {
	if p == nil || p.installedSnaps == nil {
		return
	}
	p.installedSnaps.Set(float64(n))
}
