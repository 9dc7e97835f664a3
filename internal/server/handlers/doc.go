// Package handlers contains HTTP handlers for the snapbridge admin API.
//
// This package provides handlers for:
//   - Health endpoint (monitoring)
//   - Installed snaps and their permitted origins
//   - Dialogs shown by snaps
//   - The call journal and its per-method summary
//
// All handlers report failures through foundation/errors.HTTPErrorAdapter and
// write the types from the server/responses package.
package handlers
