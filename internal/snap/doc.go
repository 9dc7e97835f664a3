// Package snap is the plugin-side SDK: the request and document types a snap
// sees, the Host capability interface the runtime injects into every snap, and
// the method router snaps use to dispatch JSON-RPC calls.
package snap
