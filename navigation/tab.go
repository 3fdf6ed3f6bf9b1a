package navigation

import (
	"fmt"
	"net/url"
	"slices"
	"sync"
)

// Tab is an in-memory History and Location: a list of visited URLs and a
// cursor into it. Navigating beyond either end is ignored, as browsers do.
type Tab struct {
	mu      sync.Mutex
	entries []string
	index   int
	reloads int
}

// NewTab returns a Tab that has loaded start.
func NewTab(start string) *Tab {
	return &Tab{entries: []string{start}}
}

// Current returns the URL at the cursor.
func (t *Tab) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[t.index]
}

// Entries returns the whole history, oldest first.
func (t *Tab) Entries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.entries)
}

// Reloads returns how many times the tab was reloaded.
func (t *Tab) Reloads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reloads
}

func (t *Tab) current() *url.URL {
	u, err := url.Parse(t.Current())
	if err != nil {
		return &url.URL{}
	}
	return u
}

// Host implements Location.
func (t *Tab) Host() string {
	return t.current().Host
}

// Search implements Location.
func (t *Tab) Search() string {
	return t.current().RawQuery
}

// Assign drops any forward entries and appends u.
func (t *Tab) Assign(u string) error {
	if _, err := url.Parse(u); err != nil {
		return fmt.Errorf("assign: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries[:t.index+1], u)
	t.index++
	return nil
}

// Replace overwrites the current entry.
func (t *Tab) Replace(u string) error {
	if _, err := url.Parse(u); err != nil {
		return fmt.Errorf("replace: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[t.index] = u
	return nil
}

// Reload implements Location.
func (t *Tab) Reload() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reloads++
	return nil
}

// Go implements History.
func (t *Tab) Go(delta int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := t.index + delta
	if next < 0 || next >= len(t.entries) {
		return nil
	}
	t.index = next
	return nil
}

var (
	_ History  = (*Tab)(nil)
	_ Location = (*Tab)(nil)
)
