// Package errors provides the classified error primitives used across snapbridge.
//
// Key features:
//   - ErrorCategory: the failure taxonomy (method_not_found, discovery, connect, inter_plugin, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether re-triggering the action can help
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - RPC, HTTP and CLI adapters for error presentation
//
// Example usage:
//
//	err := errors.InterPluginError("state snap unavailable").
//		WithContext("snap_id", snapID).
//		WithCause(originalErr).
//		Build()
package errors
