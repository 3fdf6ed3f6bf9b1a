package groupstore

import "testing"

func TestScopedCacheInvalidatedOnSet(t *testing.T) {
	b := NewMemoryBackend()
	sc := New(b).Scope("g1")

	must(t, sc.Set("", map[string]int{"v": 1}))
	first, err := sc.Get("")
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != `{"v":1}` {
		t.Fatalf("first = %s", first)
	}

	// A write behind the view's back is not seen until the view writes.
	must(t, b.Set(Key("g1", DefaultSelector), []byte(`{"v":99}`)))
	cached, _ := sc.Get(DefaultSelector)
	if string(cached) != `{"v":1}` {
		t.Errorf("cached = %s, want cached value", cached)
	}

	must(t, sc.Set(DefaultSelector, map[string]int{"v": 2}))
	fresh, _ := sc.Get("")
	if string(fresh) != `{"v":2}` {
		t.Errorf("after Set = %s", fresh)
	}
}

func TestScopedEvict(t *testing.T) {
	s := New(NewMemoryBackend())
	sc := s.Scope("g1")
	must(t, sc.Set("a", 1))
	must(t, sc.Set("b", 2))
	must(t, s.Set("g2", "a", 3))
	if _, err := sc.Get("a"); err != nil {
		t.Fatal(err)
	}

	n, err := sc.Evict()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("evicted %d, want 2", n)
	}

	got, _ := sc.Get("a")
	if string(got) != string(Empty) {
		t.Errorf("after Evict Get = %s, want Empty", got)
	}
	if other, _ := s.Get("g2", "a"); string(other) != "3" {
		t.Errorf("g2/a = %s", other)
	}
	if sc.GroupID() != "g1" {
		t.Errorf("GroupID = %q", sc.GroupID())
	}
}

func TestScopedGetReturnsCopy(t *testing.T) {
	sc := New(NewMemoryBackend()).Scope("g1")
	must(t, sc.Set("a", "v"))

	for _, sel := range []string{"a", "missing"} {
		first, err := sc.Get(sel)
		if err != nil {
			t.Fatal(err)
		}
		want := string(first)
		first[0] = 'X'

		second, _ := sc.Get(sel)
		if string(second) != want {
			t.Errorf("Get(%q) after caller mutation = %s, want %s", sel, second, want)
		}
	}
}
