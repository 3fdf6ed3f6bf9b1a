// Package memory is an in-process fake of a browser's windows. Every Window
// owns a task queue drained by one goroutine, so events on a window are
// delivered one at a time and in the order they were queued, like a page's
// event loop.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"

	"github.com/zhubert/navgroup/logger"
	"github.com/zhubert/navgroup/transport"
)

// ErrBlocked is returned by Open when the browser refuses new windows.
var ErrBlocked = errors.New("memory: popup blocked")

// Browser opens and tracks Windows.
type Browser struct {
	mu      sync.Mutex
	windows []*Window
	blocked bool
}

// NewBrowser returns a Browser with no windows.
func NewBrowser() *Browser {
	return &Browser{}
}

// Open creates a new Window at target.
func (b *Browser) Open(_ context.Context, target string) (transport.Context, error) {
	w, err := b.OpenWindow(target)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// OpenWindow is Open returning the concrete type.
func (b *Browser) OpenWindow(target string) (*Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.blocked {
		return nil, ErrBlocked
	}

	w := newWindow(target)
	b.windows = append(b.windows, w)
	logger.WithComponent("memory").Debug("window opened", "url", target)
	return w, nil
}

// SetBlocked makes subsequent Open calls fail with ErrBlocked.
func (b *Browser) SetBlocked(blocked bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocked = blocked
}

// Windows returns every window opened so far, including closed ones.
func (b *Browser) Windows() []*Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.windows)
}

// Last returns the most recently opened window, or nil.
func (b *Browser) Last() *Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.windows) == 0 {
		return nil
	}
	return b.windows[len(b.windows)-1]
}

// Window is one fake browsing context.
type Window struct {
	url       string
	listeners transport.Listeners

	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	hidden bool
	done   chan struct{}
}

func newWindow(url string) *Window {
	w := &Window{
		url:  url,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

// run drains the task queue until the window is closed and empty.
func (w *Window) run() {
	defer close(w.done)
	for {
		w.mu.Lock()
		tasks := w.queue
		w.queue = nil
		closed := w.closed
		w.mu.Unlock()

		for _, task := range tasks {
			task()
		}

		if closed && len(tasks) == 0 {
			w.listeners.Clear()
			return
		}
		if len(tasks) == 0 {
			<-w.wake
		}
	}
}

// enqueue schedules task on the window's loop. Returns false once closed.
func (w *Window) enqueue(task func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.queue = append(w.queue, task)
	w.signal()
	return true
}

// signal wakes the loop. Caller must hold mu.
func (w *Window) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// URL returns the address the window was opened at.
func (w *Window) URL() string {
	return w.url
}

// PostMessage queues a message event for this window.
func (w *Window) PostMessage(data json.RawMessage) error {
	payload := slices.Clone(data)
	if !w.enqueue(func() { w.listeners.Emit(transport.EventMessage, payload) }) {
		return transport.ErrContextClosed
	}
	return nil
}

// Subscribe registers h for event on this window. Subscribing to pagehide
// after it fired still delivers it once, so a caller that attaches late
// learns the window is gone.
func (w *Window) Subscribe(event transport.Event, h transport.Handler) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if event == transport.EventPageHide && w.hidden {
		go h(nil)
		return func() {}
	}
	return w.listeners.Add(event, h)
}

// hide marks pagehide as fired and emits it.
func (w *Window) hide() {
	w.mu.Lock()
	w.hidden = true
	w.mu.Unlock()

	w.listeners.Emit(transport.EventPageHide, nil)
}

// Close queues the pagehide event and stops accepting new tasks. Messages
// queued before Close are still delivered first. Closing twice is a no-op.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.queue = append(w.queue, w.hide)
	w.closed = true
	w.signal()
	return nil
}

// Closed reports whether Close has been called.
func (w *Window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Done is closed once the window has delivered its last event.
func (w *Window) Done() <-chan struct{} {
	return w.done
}

// ListenerCount returns how many handlers are registered for event.
func (w *Window) ListenerCount(event transport.Event) int {
	return w.listeners.Count(event)
}

// Flush blocks until every task queued before the call has run.
// It returns false if the window closed first.
func (w *Window) Flush() bool {
	ran := make(chan struct{})
	if !w.enqueue(func() { close(ran) }) {
		<-w.done
		return false
	}
	select {
	case <-ran:
		return true
	case <-w.done:
		return false
	}
}

var (
	_ transport.Opener  = (*Browser)(nil)
	_ transport.Context = (*Window)(nil)
)
