package group

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/zhubert/navgroup/groupstore"
	"github.com/zhubert/navgroup/logger"
	"github.com/zhubert/navgroup/navstate"
	"github.com/zhubert/navgroup/params"
	"github.com/zhubert/navgroup/transport"
)

// DefaultCloseDelay is how long Close waits before tearing its context
// down, so the posted result is delivered first.
const DefaultCloseDelay = 5 * time.Millisecond

// Session is the group a context is currently running in, seen from inside.
type Session struct {
	id         string
	self       transport.Context
	store      *groupstore.Scoped
	closeDelay time.Duration
	log        *slog.Logger

	closeOnce sync.Once
	evictOnce sync.Once
	done      chan struct{}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithCloseDelay overrides DefaultCloseDelay.
func WithCloseDelay(d time.Duration) SessionOption {
	return func(s *Session) { s.closeDelay = d }
}

// NewSession binds groupID to the context it runs in and its store.
func NewSession(groupID string, self transport.Context, store *groupstore.Store, opts ...SessionOption) *Session {
	s := &Session{
		id:         groupID,
		self:       self,
		store:      store.Scope(groupID),
		closeDelay: DefaultCloseDelay,
		log:        logger.WithGroup(groupID),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current builds the Session for the group named in self's URL, falling
// back to the root group.
func Current(self transport.Context, store *groupstore.Store, opts ...SessionOption) *Session {
	return NewSession(StateOf(self).Group, self, store, opts...)
}

// StateOf decodes the navigation state from a context's URL.
func StateOf(self transport.Context) navstate.State {
	u, err := url.Parse(self.URL())
	if err != nil {
		return navstate.Root()
	}
	return navstate.Decode(params.FromURL(u))
}

// ID returns the group identifier.
func (s *Session) ID() string {
	return s.id
}

// GetStore returns the group's document under selector, or groupstore.Empty.
func (s *Session) GetStore(selector string) (json.RawMessage, error) {
	return s.store.Get(selector)
}

// Done is closed once a closed session has evicted its store.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SetStore overwrites the group's document under selector.
func (s *Session) SetStore(selector string, value any) error {
	return s.store.Set(selector, value)
}

// Close reports result to whoever opened this group and then shuts the
// context down:
//
//  1. the result is posted under ResultKey(ID());
//  2. the group's store is evicted when the context's pagehide fires,
//     which is subscribed to before the result is posted;
//  3. the context is closed after the close delay.
//
// Close returns once the shutdown is scheduled, not once it happened.
// Nobody listening for the result is not an error. The only error is a
// result that cannot be encoded as JSON, in which case nothing is sent.
// Calls after the first are no-ops.
func (s *Session) Close(result any) error {
	envelope, err := Envelope(s.id, result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	s.closeOnce.Do(func() {
		off := transport.Once(s.self, transport.EventPageHide, func(json.RawMessage) {
			s.evict()
		})

		if err := s.self.PostMessage(envelope); err != nil {
			if errors.Is(err, transport.ErrContextClosed) {
				// Already torn down, pagehide will not fire again
				off()
				s.log.Debug("result not delivered, context already closed")
				s.evict()
				return
			}
			s.log.Warn("result not delivered", "error", err)
		}

		time.AfterFunc(s.closeDelay, func() {
			if err := s.self.Close(); err != nil {
				s.log.Warn("failed to close context", "error", err)
			}
		})
		s.log.Info("group closing", "delay", s.closeDelay)
	})
	return nil
}

// evict runs at most once, whichever of pagehide or a failed post gets
// there first.
func (s *Session) evict() {
	s.evictOnce.Do(func() {
		defer close(s.done)

		n, err := s.store.Evict()
		if err != nil {
			s.log.Warn("failed to evict group store", "error", err)
			return
		}
		s.log.Info("group store evicted", "entries", n)
	})
}
