package transport

import (
	"encoding/json"
	"sync"
)

// Once subscribes h to the next delivery of event only. The subscription is
// removed before h runs.
func Once(c Context, event Event, h Handler) (unsubscribe func()) {
	var (
		mu   sync.Mutex
		off  func()
		once sync.Once
	)

	mu.Lock()
	defer mu.Unlock()

	off = c.Subscribe(event, func(data json.RawMessage) {
		once.Do(func() {
			mu.Lock()
			remove := off
			mu.Unlock()
			remove()
			h(data)
		})
	})
	return off
}
