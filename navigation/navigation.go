// Package navigation maps screen-stack calls (push, pop, open for result)
// onto a browsing context's history and location.
package navigation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/zhubert/navgroup/deeplink"
	"github.com/zhubert/navgroup/group"
	"github.com/zhubert/navgroup/logger"
	"github.com/zhubert/navgroup/navstate"
	"github.com/zhubert/navgroup/transport"
)

// History is the session history of the current context.
type History interface {
	// Go moves delta entries through history; negative goes back.
	Go(delta int) error
}

// Location is the address of the current context.
type Location interface {
	Host() string   // host[:port] of the current URL
	Search() string // raw query of the current URL, without "?"
	Assign(url string) error
	Replace(url string) error
	Reload() error
}

// PushOptions controls Push.
type PushOptions struct {
	// Replace swaps the current screen instead of pushing a new one.
	Replace bool

	// ScreensGroup moves the target into another screen group.
	ScreensGroup string

	// KeepTargetHost disables pointing wrapped targets at a dev host.
	KeepTargetHost bool
}

// Navigator drives one context. Its state is read from the location once,
// the way a page reads it on load.
type Navigator struct {
	history  History
	location Location
	resolver *deeplink.Resolver
	spawner  *group.Spawner
	state    navstate.State
	log      *slog.Logger
}

// Option configures a Navigator.
type Option func(*navigatorOptions)

type navigatorOptions struct {
	rules        *deeplink.Rules
	spawnOptions []group.SpawnerOption
}

// WithRules applies host rules to every resolved deep link.
func WithRules(rules *deeplink.Rules) Option {
	return func(o *navigatorOptions) { o.rules = rules }
}

// WithSpawnerOptions passes options to the Spawner used by OpenForResult.
func WithSpawnerOptions(opts ...group.SpawnerOption) Option {
	return func(o *navigatorOptions) { o.spawnOptions = append(o.spawnOptions, opts...) }
}

// New returns a Navigator for the context behind history and location.
// opener launches contexts for OpenForResult.
func New(history History, location Location, opener transport.Opener, opts ...Option) *Navigator {
	var o navigatorOptions
	for _, opt := range opts {
		opt(&o)
	}

	resolver := deeplink.NewResolver(location.Host(), o.rules)
	spawnOpts := append([]group.SpawnerOption{group.WithTarget(resolver.SpawnTarget)}, o.spawnOptions...)

	state := navstate.DecodeQuery(location.Search())
	return &Navigator{
		history:  history,
		location: location,
		resolver: resolver,
		spawner:  group.NewSpawner(opener, spawnOpts...),
		state:    state,
		log:      logger.WithComponent("navigation").With("state", state.String()),
	}
}

// State returns the navigation state the context was loaded with.
func (n *Navigator) State() navstate.State {
	return n.state
}

// Push navigates to deeplink and returns the URL navigated to.
func (n *Navigator) Push(deeplink string, opts PushOptions) (string, error) {
	next := n.state.TransitionTo(navstate.Transition{
		Group:   opts.ScreensGroup,
		Replace: opts.Replace,
	})

	target, err := n.resolver.Resolve(deeplink, resolveOptions(next, opts))
	if err != nil {
		return "", err
	}

	url := target.String()
	if opts.Replace {
		err = n.location.Replace(url)
	} else {
		err = n.location.Assign(url)
	}
	if err != nil {
		return "", fmt.Errorf("navigate to %s: %w", url, err)
	}

	n.log.Info("pushed", "url", url, "next", next.String(), "replace", opts.Replace)
	return url, nil
}

func resolveOptions(next navstate.State, opts PushOptions) deeplink.Options {
	return deeplink.Options{Next: &next, RewriteHostDev: !opts.KeepTargetHost}
}

// Pop goes back screens entries. Anything below 1 pops one.
func (n *Navigator) Pop(screens int) error {
	if screens < 1 {
		screens = 1
	}
	if err := n.history.Go(-screens); err != nil {
		return fmt.Errorf("pop %d: %w", screens, err)
	}
	n.log.Info("popped", "screens", screens)
	return nil
}

// Reload reloads the current context.
func (n *Navigator) Reload() error {
	return n.location.Reload()
}

// OpenForResult opens deeplink in a new context under a fresh group and
// waits for the result it closes with.
func (n *Navigator) OpenForResult(ctx context.Context, deeplink string) (json.RawMessage, error) {
	return n.spawner.SpawnAndWait(ctx, deeplink)
}

// Spawn is OpenForResult without waiting.
func (n *Navigator) Spawn(ctx context.Context, deeplink string) (*group.Pending, error) {
	return n.spawner.Spawn(ctx, deeplink)
}

// CloseScreenGroup pops every screen of the current group.
func (n *Navigator) CloseScreenGroup() error {
	return n.Pop(n.state.Screens)
}
