package groupstore

import (
	"encoding/json"
	"slices"
	"sync"
)

// Scoped is a Store view bound to one group. Reads are cached per selector
// until the next write or eviction through the same view.
type Scoped struct {
	store   *Store
	groupID string

	mu    sync.Mutex
	cache map[string]json.RawMessage
}

// Scope returns a view of s bound to groupID.
func (s *Store) Scope(groupID string) *Scoped {
	return &Scoped{
		store:   s,
		groupID: groupID,
		cache:   make(map[string]json.RawMessage),
	}
}

// GroupID returns the group this view is bound to.
func (sc *Scoped) GroupID() string {
	return sc.groupID
}

// Get returns the document for selector, or Empty when nothing was set.
// Callers get their own copy of the cached bytes.
func (sc *Scoped) Get(selector string) (json.RawMessage, error) {
	if selector == "" {
		selector = DefaultSelector
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if cached, ok := sc.cache[selector]; ok {
		return slices.Clone(cached), nil
	}
	data, err := sc.store.Get(sc.groupID, selector)
	if err != nil {
		return nil, err
	}
	sc.cache[selector] = data
	return slices.Clone(data), nil
}

// Set writes the document for selector.
func (sc *Scoped) Set(selector string, value any) error {
	if selector == "" {
		selector = DefaultSelector
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	delete(sc.cache, selector)
	return sc.store.Set(sc.groupID, selector, value)
}

// Evict removes every entry of the group and drops the read cache.
func (sc *Scoped) Evict() (int, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	clear(sc.cache)
	return sc.store.EvictGroup(sc.groupID)
}
