package transport

import (
	"encoding/json"
	"sync"
)

// Listeners is a registry of event handlers shared by Context implementations.
// The zero value is ready to use.
type Listeners struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[Event]map[uint64]Handler
	order  map[Event][]uint64
}

// Add registers h for event and returns its remover.
func (l *Listeners) Add(event Event, h Handler) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.byID == nil {
		l.byID = make(map[Event]map[uint64]Handler)
		l.order = make(map[Event][]uint64)
	}
	if l.byID[event] == nil {
		l.byID[event] = make(map[uint64]Handler)
	}

	l.nextID++
	id := l.nextID
	l.byID[event][id] = h
	l.order[event] = append(l.order[event], id)

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(event, id) })
	}
}

func (l *Listeners) remove(event Event, id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.byID[event], id)
	ids := l.order[event]
	for i, v := range ids {
		if v == id {
			l.order[event] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// Emit calls every handler registered for event, in registration order.
// Handlers are snapshotted first, so a handler may unsubscribe itself or
// others. A handler removed by an earlier handler in the same Emit is skipped.
func (l *Listeners) Emit(event Event, data json.RawMessage) {
	l.mu.Lock()
	ids := append([]uint64(nil), l.order[event]...)
	l.mu.Unlock()

	for _, id := range ids {
		l.mu.Lock()
		h, ok := l.byID[event][id]
		l.mu.Unlock()
		if ok {
			h(data)
		}
	}
}

// Count returns how many handlers are registered for event.
func (l *Listeners) Count(event Event) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byID[event])
}

// Clear drops every handler.
func (l *Listeners) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID = nil
	l.order = nil
}
