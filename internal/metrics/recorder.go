package metrics

import "time"

// ResultLabel enumerates call result categories for counters.
type ResultLabel string

const (
	ResultSuccess        ResultLabel = "success"
	ResultMethodNotFound ResultLabel = "method_not_found"
	ResultRejected       ResultLabel = "rejected"
	ResultTimeout        ResultLabel = "timeout"
	ResultError          ResultLabel = "error"
)

// Recorder defines observability hooks for snap calls.
type Recorder interface {
	ObserveRPCDuration(snapID, method string, d time.Duration)
	IncRPCResult(snapID, method string, result ResultLabel)
	IncInterPluginCall(target string, result ResultLabel)
	SetInstalledSnaps(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRPCDuration(string, string, time.Duration) {}
func (NoopRecorder) IncRPCResult(string, string, ResultLabel)         {}
func (NoopRecorder) IncInterPluginCall(string, ResultLabel)           {}
func (NoopRecorder) SetInstalledSnaps(int)                            {}
