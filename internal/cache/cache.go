// Package cache holds the local, disposable projection of the user's
// workspaces: an ordered in-memory list, the in-memory file buffers of
// sources added in this session, and the persisted copy on disk.
package cache

import (
	"slices"
	"sync"

	"github.com/JaimeStill/licita/internal/dedupe"
	"github.com/JaimeStill/licita/internal/workspace"
)

// Cache is the ordered workspace list. All reads return copies; all writes
// go through the methods below, atomically under the cache lock.
type Cache struct {
	mu    sync.RWMutex
	items []workspace.Workspace
}

// New creates a cache seeded with list.
func New(list []workspace.Workspace) *Cache {
	c := &Cache{}
	c.Replace(list)
	return c
}

// List returns a copy of every cached workspace in order.
func (c *Cache) List() []workspace.Workspace {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]workspace.Workspace, len(c.items))
	for i, w := range c.items {
		out[i] = w.Clone()
	}
	return out
}

// Len returns the number of cached workspaces.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns a copy of the workspace with id.
func (c *Cache) Get(id string) (workspace.Workspace, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.items[i].Clone(), nil
	}
	return workspace.Workspace{}, ErrNotFound
}

// Has reports whether id is cached.
func (c *Cache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index(id) >= 0
}

// Create prepends w, so the newest workspace lists first.
func (c *Cache) Create(w workspace.Workspace) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index(w.ID) >= 0 {
		return ErrDuplicate
	}
	c.items = slices.Insert(c.items, 0, w.Clone())
	return nil
}

// Delete removes the workspace with id and returns its last state.
func (c *Cache) Delete(id string) (workspace.Workspace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return workspace.Workspace{}, ErrNotFound
	}
	w := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	return w, nil
}

// Replace swaps the whole list, collapsing duplicate names.
func (c *Cache) Replace(list []workspace.Workspace) {
	resolved := dedupe.Resolve(list)
	items := make([]workspace.Workspace, len(resolved))
	for i, w := range resolved {
		items[i] = w.Clone()
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
}

// Update applies fn to the live workspace with id under the cache lock. It
// returns false without calling fn when the workspace no longer exists; this
// is how late results for deleted workspaces are discarded. fn must not block.
func (c *Cache) Update(id string, fn func(*workspace.Workspace)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return false
	}
	fn(&c.items[i])
	return true
}

// UpdateSource applies fn to one source of a workspace under the cache lock.
// It returns false when either the workspace or the source is gone.
func (c *Cache) UpdateSource(workspaceID, sourceID string, fn func(*workspace.Workspace, *workspace.Source)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(workspaceID)
	if i < 0 {
		return false
	}
	w := &c.items[i]
	s := w.Source(sourceID)
	if s == nil {
		return false
	}
	fn(w, s)
	return true
}

func (c *Cache) index(id string) int {
	return slices.IndexFunc(c.items, func(w workspace.Workspace) bool {
		return w.ID == id
	})
}
