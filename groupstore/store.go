// Package groupstore persists small JSON documents per screen group.
//
// Every entry is addressed by (group, selector). Keys of one group share a
// common prefix, so a closing group can be evicted with a prefix scan
// without knowing which selectors were ever written:
//
//	__navgroup__storage__:<group>:<selector>
//
// Values are stored in RFC 8785 canonical JSON so identical documents are
// byte-identical on disk regardless of the map order they were built from.
package groupstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gowebpki/jcs"
	"github.com/zhubert/navgroup/logger"
)

const (
	// KeyPrefix namespaces every key written by a Store.
	KeyPrefix = "__navgroup__storage__"

	// DefaultSelector is used when a caller does not name a selector.
	DefaultSelector = "default"

	separator = ":"
)

// Empty is returned by Get for entries that were never set.
var Empty = json.RawMessage("{}")

var (
	// ErrInvalidGroup is returned for empty group IDs or IDs containing the key separator.
	ErrInvalidGroup = errors.New("groupstore: invalid group id")

	// ErrInvalidSelector is returned for selectors containing the key separator.
	ErrInvalidSelector = errors.New("groupstore: invalid selector")
)

// Backend is the raw key-value storage a Store is layered on.
// Implementations must be safe for concurrent use.
type Backend interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
	// Keys lists every key currently persisted.
	Keys() ([]string, error)
	Close() error
}

// Store namespaces a Backend by group.
type Store struct {
	backend Backend
}

// New returns a Store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// GroupPrefix returns the key prefix shared by every entry of groupID.
func GroupPrefix(groupID string) string {
	return KeyPrefix + separator + groupID + separator
}

// Key returns the backend key for (groupID, selector).
func Key(groupID, selector string) string {
	if selector == "" {
		selector = DefaultSelector
	}
	return GroupPrefix(groupID) + selector
}

func validate(groupID, selector string) error {
	if groupID == "" || strings.Contains(groupID, separator) {
		return fmt.Errorf("%w: %q", ErrInvalidGroup, groupID)
	}
	if strings.Contains(selector, separator) {
		return fmt.Errorf("%w: %q", ErrInvalidSelector, selector)
	}
	return nil
}

// Lookup returns the stored document and whether it exists.
func (s *Store) Lookup(groupID, selector string) (json.RawMessage, bool, error) {
	if err := validate(groupID, selector); err != nil {
		return nil, false, err
	}
	data, ok, err := s.backend.Get(Key(groupID, selector))
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", Key(groupID, selector), err)
	}
	if !ok {
		return nil, false, nil
	}
	return json.RawMessage(data), true, nil
}

// Get returns the stored document, or Empty when nothing was set.
func (s *Store) Get(groupID, selector string) (json.RawMessage, error) {
	data, ok, err := s.Lookup(groupID, selector)
	if err != nil {
		return nil, err
	}
	if !ok {
		return slices.Clone(Empty), nil
	}
	return data, nil
}

// GetInto decodes the stored document into v. Missing entries leave v untouched.
func (s *Store) GetInto(groupID, selector string, v any) (bool, error) {
	data, ok, err := s.Lookup(groupID, selector)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", Key(groupID, selector), err)
	}
	return true, nil
}

// Set serializes value and overwrites the entry for (groupID, selector).
func (s *Store) Set(groupID, selector string, value any) error {
	if err := validate(groupID, selector); err != nil {
		return err
	}
	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", Key(groupID, selector), err)
	}
	if err := s.backend.Set(Key(groupID, selector), data); err != nil {
		return fmt.Errorf("write %s: %w", Key(groupID, selector), err)
	}
	return nil
}

// EvictGroup deletes every entry of groupID and returns how many were removed.
// It scans all backend keys, so selectors need not be known in advance.
func (s *Store) EvictGroup(groupID string) (int, error) {
	if err := validate(groupID, ""); err != nil {
		return 0, err
	}

	keys, err := s.backend.Keys()
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}

	prefix := GroupPrefix(groupID)
	removed := 0
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := s.backend.Delete(key); err != nil {
			return removed, fmt.Errorf("delete %s: %w", key, err)
		}
		removed++
	}

	logger.WithGroup(groupID).Debug("group store evicted", "entries", removed)
	return removed, nil
}

// Selectors lists the selectors currently stored for groupID.
func (s *Store) Selectors(groupID string) ([]string, error) {
	if err := validate(groupID, ""); err != nil {
		return nil, err
	}
	keys, err := s.backend.Keys()
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	prefix := GroupPrefix(groupID)
	var selectors []string
	for _, key := range keys {
		if sel, ok := strings.CutPrefix(key, prefix); ok {
			selectors = append(selectors, sel)
		}
	}
	return selectors, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func encode(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}
