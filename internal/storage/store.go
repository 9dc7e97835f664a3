// Package storage persists snap state documents on behalf of the host runtime.
// Every snap owns exactly one document, keyed by its snap ID.
package storage

import (
	"context"

	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

// Store persists one document per snap.
type Store interface {
	// Get returns the snap's document. found is false when nothing is stored.
	Get(ctx context.Context, snapID string) (doc snap.Document, found bool, err error)

	// Put replaces the snap's document.
	Put(ctx context.Context, snapID string, doc snap.Document) error

	// Delete removes the snap's document. Deleting a missing document is not an error.
	Delete(ctx context.Context, snapID string) error

	// Close releases any resources held by the store.
	Close() error
}
