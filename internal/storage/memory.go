package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

// MemoryStore keeps documents in process memory. Documents are stored as
// encoded JSON so callers never share maps with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	calls MemoryCalls
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	Get    int
	Put    int
	Delete int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, snapID string) (snap.Document, bool, error) {
	m.mu.Lock()
	m.calls.Get++
	data, ok := m.docs[snapID]
	m.mu.Unlock()

	if !ok {
		return nil, false, nil
	}
	doc, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (m *MemoryStore) Put(_ context.Context, snapID string, doc snap.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Put++
	m.docs[snapID] = data
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, snapID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++
	delete(m.docs, snapID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Calls returns a snapshot of the invocation counters.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func encode(doc snap.Document) ([]byte, error) {
	if doc == nil {
		doc = snap.Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func decode(data []byte) (snap.Document, error) {
	var doc snap.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = snap.Document{}
	}
	return doc, nil
}
