// Package host is the wallet runtime that loads snaps and mediates every call
// made to them. It installs packages from a Registry, grants each snap scoped
// state storage, dialogs and inter-plugin calls through the snap.Host
// capability, serializes RPC handling per snap, and exposes a page-facing
// Session bound to the calling origin.
package host
