package group

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/zhubert/navgroup/groupstore"
	"github.com/zhubert/navgroup/logger"
	"github.com/zhubert/navgroup/params"
	"github.com/zhubert/navgroup/transport"
)

// ErrContextClosed is the rejection of a spawn whose child went away
// without posting a result.
var ErrContextClosed = errors.New("context closed before result")

// TargetFunc turns a deep link into the URL a child is opened at.
type TargetFunc func(deeplink string) (*url.URL, error)

// Spawner opens child contexts and hands back their pending results.
type Spawner struct {
	opener transport.Opener
	target TargetFunc
	newID  func() string
	store  *groupstore.Store
}

// SpawnerOption configures a Spawner.
type SpawnerOption func(*Spawner)

// WithTarget sets the deep link resolver. The default parses the deep link
// as a URL unchanged.
func WithTarget(fn TargetFunc) SpawnerOption {
	return func(s *Spawner) { s.target = fn }
}

// WithIDGenerator replaces NewID. Intended for tests.
func WithIDGenerator(fn func() string) SpawnerOption {
	return func(s *Spawner) { s.newID = fn }
}

// WithOrphanEviction makes the opener evict a child's group store when the
// child disappears without a result. Children that close normally evict
// their own store.
func WithOrphanEviction(store *groupstore.Store) SpawnerOption {
	return func(s *Spawner) { s.store = store }
}

// NewSpawner returns a Spawner opening children through opener.
func NewSpawner(opener transport.Opener, opts ...SpawnerOption) *Spawner {
	s := &Spawner{
		opener: opener,
		target: url.Parse,
		newID:  NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn opens deeplink in a new context under a fresh group and returns
// without waiting. The returned Pending settles exactly once: with the
// first result the child posts, or with ErrContextClosed if the child goes
// away first. There is no timeout.
//
// The error return only covers failing to open the child.
func (s *Spawner) Spawn(ctx context.Context, deeplink string) (*Pending, error) {
	target, err := s.target(deeplink)
	if err != nil {
		return nil, fmt.Errorf("resolve deep link %q: %w", deeplink, err)
	}

	groupID := s.newID()
	log := logger.WithGroup(groupID)

	// The child starts a new group, so its depth is implicitly 1
	p := params.FromURL(target)
	p.Set(params.Group, groupID)
	p.Del(params.Screens)
	p.ApplyTo(target)

	child, err := s.opener.Open(ctx, target.String())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", target, err)
	}
	log.Info("child opened", "url", target.String())

	pending := newPending(groupID, log)
	pending.track(child.Subscribe(transport.EventMessage, func(data json.RawMessage) {
		if result, ok := Extract(groupID, data); ok {
			pending.settle(result, nil, nil)
		}
	}))
	pending.track(child.Subscribe(transport.EventPageHide, func(json.RawMessage) {
		pending.settle(nil, fmt.Errorf("%w: group %s", ErrContextClosed, groupID), func() {
			s.evictOrphan(groupID, log)
		})
	}))

	if starter, ok := child.(transport.Starter); ok {
		starter.Start()
	}
	return pending, nil
}

// SpawnAndWait is Spawn followed by Wait.
func (s *Spawner) SpawnAndWait(ctx context.Context, deeplink string) (json.RawMessage, error) {
	pending, err := s.Spawn(ctx, deeplink)
	if err != nil {
		return nil, err
	}
	return pending.Wait(ctx)
}

func (s *Spawner) evictOrphan(groupID string, log *slog.Logger) {
	if s.store == nil {
		return
	}
	if n, err := s.store.EvictGroup(groupID); err != nil {
		log.Warn("failed to evict orphaned group store", "error", err)
	} else if n > 0 {
		log.Info("evicted orphaned group store", "entries", n)
	}
}

// Pending is the result of one spawned child. It is PENDING until either
// subscription fires, then SETTLED forever.
type Pending struct {
	groupID string
	log     *slog.Logger
	done    chan struct{}

	mu      sync.Mutex
	settled bool
	result  json.RawMessage
	err     error
	unsubs  []func()
}

func newPending(groupID string, log *slog.Logger) *Pending {
	return &Pending{
		groupID: groupID,
		log:     log,
		done:    make(chan struct{}),
	}
}

// GroupID returns the group the child was opened under.
func (p *Pending) GroupID() string {
	return p.groupID
}

// Done is closed once the spawn has settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the spawn settles or ctx ends. Giving up on ctx does
// not cancel the spawn; a later Wait can still observe the result.
func (p *Pending) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Decode waits for the result and unmarshals it into v.
func (p *Pending) Decode(ctx context.Context, v any) error {
	result, err := p.Wait(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(result, v)
}

// track remembers unsub for settlement, or runs it now if already settled.
func (p *Pending) track(unsub func()) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		unsub()
		return
	}
	p.unsubs = append(p.unsubs, unsub)
	p.mu.Unlock()
}

// settle moves the spawn to SETTLED and detaches every subscription before
// Done is closed. Only the first call has any effect; it reports whether
// this call was the one that settled. then, if set, runs before Done is
// closed and only for the call that settled.
func (p *Pending) settle(result json.RawMessage, err error, then func()) bool {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return false
	}
	p.settled = true
	p.result = result
	p.err = err
	unsubs := p.unsubs
	p.unsubs = nil
	p.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if then != nil {
		then()
	}

	if err != nil {
		p.log.Info("spawn rejected", "error", err)
	} else {
		p.log.Info("spawn resolved")
	}
	close(p.done)
	return true
}
