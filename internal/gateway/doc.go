// Package gateway exposes a host runtime to pages over JSON-RPC 2.0 on TCP and
// provides the matching client.
//
// Messages are framed with jsonrpc2.VSCodeObjectCodec (Content-Length headers).
// Every connection gets its own host.Session bound to the configured page
// origin, so permissions granted through one connection hold for the next.
package gateway
