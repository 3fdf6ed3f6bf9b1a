package groupstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/zhubert/navgroup/logger"
)

func TestMain(m *testing.M) {
	logger.Reset()
	logger.Init(os.DevNull)

	code := m.Run()

	logger.Reset()
	os.Exit(code)
}

// backends returns one Store per backend implementation.
func backends(t *testing.T) map[string]*Store {
	t.Helper()
	dir := t.TempDir()

	file, err := OpenFileBackend(filepath.Join(dir, "store.json"))
	if err != nil {
		t.Fatalf("OpenFileBackend: %v", err)
	}
	db, err := OpenSQLiteBackend(filepath.Join(dir, "store.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteBackend: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]*Store{
		"memory": New(NewMemoryBackend()),
		"file":   New(file),
		"sqlite": New(db),
	}
}

func TestKey(t *testing.T) {
	if got := Key("g1", "cart"); got != "__navgroup__storage__:g1:cart" {
		t.Errorf("Key = %q", got)
	}
	if got := Key("g1", ""); got != "__navgroup__storage__:g1:default" {
		t.Errorf("Key with default selector = %q", got)
	}
}

func TestGetMissingReturnsEmpty(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get("g1", DefaultSelector)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != string(Empty) {
				t.Errorf("Get missing = %s, want %s", got, Empty)
			}

			_, ok, err := s.Lookup("g1", "nope")
			if err != nil || ok {
				t.Errorf("Lookup missing = ok %v err %v", ok, err)
			}
		})
	}
}

func TestSetGetOverwrite(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set("g1", "cart", map[string]any{"items": []int{1, 2}}); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set("g1", "cart", map[string]any{"items": []int{3}}); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}

			var got struct {
				Items []int `json:"items"`
			}
			ok, err := s.GetInto("g1", "cart", &got)
			if err != nil || !ok {
				t.Fatalf("GetInto: ok=%v err=%v", ok, err)
			}
			if len(got.Items) != 1 || got.Items[0] != 3 {
				t.Errorf("items = %v, want [3]", got.Items)
			}
		})
	}
}

func TestSelectorsCoexist(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set("g1", "a", "X"); err != nil {
				t.Fatal(err)
			}
			if err := s.Set("g1", "b", "Y"); err != nil {
				t.Fatal(err)
			}

			a, _ := s.Get("g1", "a")
			b, _ := s.Get("g1", "b")
			if string(a) != `"X"` || string(b) != `"Y"` {
				t.Errorf("a=%s b=%s", a, b)
			}
		})
	}
}

func TestEvictGroupRemovesUnknownSelectors(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			must(t, s.Set("g1", "a", "X"))
			must(t, s.Set("g1", "b", "Y"))
			must(t, s.Set("g1", "", map[string]int{"n": 1}))
			must(t, s.Set("g2", "a", "other"))
			must(t, s.Set("g10", "a", "prefix sibling"))

			removed, err := s.EvictGroup("g1")
			if err != nil {
				t.Fatalf("EvictGroup: %v", err)
			}
			if removed != 3 {
				t.Errorf("removed = %d, want 3", removed)
			}

			for _, sel := range []string{"a", "b", DefaultSelector} {
				if _, ok, _ := s.Lookup("g1", sel); ok {
					t.Errorf("g1/%s still present", sel)
				}
			}
			if got, _ := s.Get("g2", "a"); string(got) != `"other"` {
				t.Errorf("g2/a = %s", got)
			}
			if got, _ := s.Get("g10", "a"); string(got) != `"prefix sibling"` {
				t.Errorf("g10/a = %s", got)
			}
		})
	}
}

func TestEvictEmptyGroup(t *testing.T) {
	s := New(NewMemoryBackend())
	removed, err := s.EvictGroup("nothing-here")
	if err != nil || removed != 0 {
		t.Errorf("EvictGroup = %d, %v", removed, err)
	}
}

func TestCanonicalEncoding(t *testing.T) {
	b := NewMemoryBackend()
	s := New(b)
	must(t, s.Set("g1", "doc", map[string]any{"z": 1, "a": []string{"x"}, "m": nil}))

	raw, ok, _ := b.Get(Key("g1", "doc"))
	if !ok {
		t.Fatal("entry missing")
	}
	if string(raw) != `{"a":["x"],"m":null,"z":1}` {
		t.Errorf("stored %s, want canonical form", raw)
	}
}

func TestInvalidKeys(t *testing.T) {
	s := New(NewMemoryBackend())

	tests := []struct {
		name     string
		group    string
		selector string
		want     error
	}{
		{"empty group", "", "a", ErrInvalidGroup},
		{"separator in group", "a:b", "a", ErrInvalidGroup},
		{"separator in selector", "g", "x:y", ErrInvalidSelector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Set(tt.group, tt.selector, 1); !errors.Is(err, tt.want) {
				t.Errorf("Set error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnencodableValue(t *testing.T) {
	s := New(NewMemoryBackend())
	if err := s.Set("g1", "", make(chan int)); err == nil {
		t.Error("expected error for unencodable value")
	}
}

func TestSelectors(t *testing.T) {
	s := New(NewMemoryBackend())
	must(t, s.Set("g1", "b", 1))
	must(t, s.Set("g1", "a", 2))
	must(t, s.Set("g2", "c", 3))

	sels, err := s.Selectors("g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sels) != 2 || sels[0] != "a" || sels[1] != "b" {
		t.Errorf("Selectors = %v", sels)
	}
}

func TestFileBackendPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	b, err := OpenFileBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	must(t, New(b).Set("g1", "", []int{1, 2, 3}))

	reopened, err := OpenFileBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := New(reopened).Get("g1", "")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "[1,2,3]" {
		t.Errorf("reopened value = %s", got)
	}
}

func TestFileBackendCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFileBackend(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestFileBackendSharedBetweenHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.json")

	opener, err := OpenFileBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	defer opener.Close()
	child, err := OpenFileBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	defer child.Close()

	// Both handles exist before either writes, like spawn and close do.
	openerStore := New(opener)
	childStore := New(child)
	must(t, openerStore.Set("g2", "x", "kept"))
	must(t, childStore.Set("g1", "form", map[string]string{"step": "shipping"}))
	must(t, childStore.Set("g1", "draft", "hello"))

	got, err := openerStore.Get("g1", "form")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"step":"shipping"}` {
		t.Errorf("opener sees g1/form = %s", got)
	}

	removed, err := openerStore.EvictGroup("g1")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("evicted %d entries, want 2", removed)
	}

	keys, err := child.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0] != Key("g2", "x") {
		t.Errorf("keys left = %v, want only g2/x", keys)
	}
}

func TestFileBackendConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	handles := make([]*Store, 4)
	for i := range handles {
		b, err := OpenFileBackend(path)
		if err != nil {
			t.Fatal(err)
		}
		defer b.Close()
		handles[i] = New(b)
	}

	var wg sync.WaitGroup
	for i, s := range handles {
		wg.Go(func() {
			for j := range 10 {
				if err := s.Set(fmt.Sprintf("g%d", i), fmt.Sprintf("s%d", j), j); err != nil {
					t.Errorf("Set: %v", err)
				}
			}
		})
	}
	wg.Wait()

	reopened, err := OpenFileBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	keys, err := reopened.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 40 {
		t.Errorf("got %d keys, want 40", len(keys))
	}
}

func TestGetMissingReturnsOwnCopy(t *testing.T) {
	s := New(NewMemoryBackend())

	got, err := s.Get("g1", "a")
	if err != nil {
		t.Fatal(err)
	}
	got[0] = 'X'

	again, _ := s.Get("g1", "b")
	if string(again) != "{}" || string(Empty) != "{}" {
		t.Errorf("missing entry = %s, Empty = %s after caller mutation", again, Empty)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	for _, kind := range []Kind{KindMemory, KindFile, KindSQLite} {
		t.Run(string(kind), func(t *testing.T) {
			s, err := Open(kind, filepath.Join(dir, string(kind), "store"))
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer s.Close()
			must(t, s.Set("g", "", json.RawMessage(`{"ok":true}`)))
		})
	}

	if _, err := Open("redis", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
	if Kind("redis").Valid() {
		t.Error("redis should not be a valid kind")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
