package groupstore

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/gofrs/flock"
)

// FileBackend persists entries as a single JSON object on disk. The whole
// file is rewritten on every mutation, which is fine for the handful of
// small documents a screen group keeps.
//
// The opener and its children run as separate processes sharing the file,
// so nothing is cached: every operation re-reads the file while holding an
// advisory lock on <path>.lock, shared for reads and exclusive for writes.
type FileBackend struct {
	mu       sync.Mutex
	filePath string
	lock     *flock.Flock
}

// OpenFileBackend checks that path is readable, or starts empty if it does
// not exist yet.
func OpenFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	b := &FileBackend{
		filePath: path,
		lock:     flock.New(path + ".lock"),
	}
	if err := b.view(func(map[string]json.RawMessage) error { return nil }); err != nil {
		b.lock.Close()
		return nil, err
	}
	return b, nil
}

func (b *FileBackend) Get(key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	err := b.view(func(entries map[string]json.RawMessage) error {
		v, ok := entries[key]
		value, found = slices.Clone([]byte(v)), ok
		return nil
	})
	if err != nil || !found {
		return nil, false, err
	}
	return value, true, nil
}

func (b *FileBackend) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %s is not valid JSON", key)
	}
	return b.update(func(entries map[string]json.RawMessage) bool {
		entries[key] = slices.Clone(value)
		return true
	})
}

func (b *FileBackend) Delete(key string) error {
	return b.update(func(entries map[string]json.RawMessage) bool {
		if _, ok := entries[key]; !ok {
			return false
		}
		delete(entries, key)
		return true
	})
}

func (b *FileBackend) Keys() ([]string, error) {
	var keys []string
	err := b.view(func(entries map[string]json.RawMessage) error {
		keys = slices.Sorted(maps.Keys(entries))
		return nil
	})
	return keys, err
}

func (b *FileBackend) Close() error {
	return b.lock.Close()
}

// view runs fn on a fresh read of the file under the shared lock.
func (b *FileBackend) view(fn func(map[string]json.RawMessage) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.lock.RLock(); err != nil {
		return fmt.Errorf("lock store file %s: %w", b.filePath, err)
	}
	defer b.lock.Unlock()

	entries, err := b.load()
	if err != nil {
		return err
	}
	return fn(entries)
}

// update re-reads the file under the exclusive lock, applies fn and saves
// when fn reports a change.
func (b *FileBackend) update(fn func(map[string]json.RawMessage) bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.lock.Lock(); err != nil {
		return fmt.Errorf("lock store file %s: %w", b.filePath, err)
	}
	defer b.lock.Unlock()

	entries, err := b.load()
	if err != nil {
		return err
	}
	if !fn(entries) {
		return nil
	}
	return b.save(entries)
}

// load reads the file. A missing or empty file holds no entries.
func (b *FileBackend) load() (map[string]json.RawMessage, error) {
	entries := make(map[string]json.RawMessage)

	data, err := os.ReadFile(b.filePath)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", b.filePath, err)
	}
	if entries == nil {
		entries = make(map[string]json.RawMessage)
	}
	return entries, nil
}

// save writes entries through a temp file so readers never see a partial
// document. Caller must hold the exclusive lock.
func (b *FileBackend) save(entries map[string]json.RawMessage) error {
	dir := filepath.Dir(b.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".store-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), b.filePath)
}

var _ Backend = (*FileBackend)(nil)
