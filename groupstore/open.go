package groupstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Kind selects a Backend implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
)

// Valid reports whether k names a known backend.
func (k Kind) Valid() bool {
	switch k {
	case KindMemory, KindFile, KindSQLite:
		return true
	}
	return false
}

// Open builds a Store on the backend named by kind. path is ignored for
// KindMemory.
func Open(kind Kind, path string) (*Store, error) {
	switch kind {
	case KindMemory:
		return New(NewMemoryBackend()), nil
	case KindFile:
		b, err := OpenFileBackend(path)
		if err != nil {
			return nil, err
		}
		return New(b), nil
	case KindSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		b, err := OpenSQLiteBackend(path)
		if err != nil {
			return nil, err
		}
		return New(b), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}
