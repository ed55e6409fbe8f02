package cache

import (
	"bytes"
	"sync"
)

// Buffers keeps the bytes of files added in this session, keyed by source
// id. It lives only in process memory; after a restart sources are
// re-fetched from the record store.
type Buffers struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewBuffers creates an empty buffer map.
func NewBuffers() *Buffers {
	return &Buffers{files: make(map[string][]byte)}
}

// Put stores a copy of data for sourceID.
func (b *Buffers) Put(sourceID string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[sourceID] = bytes.Clone(data)
}

// Get returns the bytes held for sourceID.
func (b *Buffers) Get(sourceID string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.files[sourceID]
	return data, ok
}

// Drop forgets the given sources.
func (b *Buffers) Drop(sourceIDs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range sourceIDs {
		delete(b.files, id)
	}
}

// Len returns the number of buffered files.
func (b *Buffers) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.files)
}
