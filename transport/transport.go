// Package transport abstracts the browsing contexts a navigation group
// talks through. A Context is one window: something that can be posted to,
// observed, and closed. An Opener creates child contexts.
//
// Two implementations ship with navgroup:
//
//   - transport/memory: an in-process fake browser, used by tests and by
//     hosts that run every screen in one process.
//   - transport/socket: one Unix socket per group, with the child launched
//     as a separate process.
package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// Event names a lifecycle or data event a Context emits.
type Event string

const (
	// EventMessage fires for every payload posted to the context.
	EventMessage Event = "message"

	// EventPageHide fires once when the context is torn down.
	EventPageHide Event = "pagehide"
)

// ErrContextClosed is returned when posting to a context that has gone away.
var ErrContextClosed = errors.New("transport: context closed")

// Handler receives event data. For EventPageHide data is nil.
type Handler func(data json.RawMessage)

// Context is a handle on one browsing context.
type Context interface {
	// URL returns the address the context was opened at.
	URL() string

	// PostMessage delivers data to the context's EventMessage subscribers.
	// Delivery is asynchronous; nobody listening is not an error.
	PostMessage(data json.RawMessage) error

	// Subscribe registers h for event and returns a function that removes it.
	// The returned function is safe to call more than once.
	Subscribe(event Event, h Handler) (unsubscribe func())

	// Close tears the context down, firing EventPageHide.
	Close() error
}

// Opener creates child contexts.
type Opener interface {
	Open(ctx context.Context, target string) (Context, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, target string) (Context, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, target string) (Context, error) {
	return f(ctx, target)
}

// Starter is implemented by contexts that hold back event delivery until the
// opener has subscribed. Openers of such contexts must call Start once their
// handlers are registered.
type Starter interface {
	Start()
}
