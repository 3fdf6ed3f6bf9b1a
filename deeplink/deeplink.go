// Package deeplink turns the deep links a host is asked to open into the
// URLs that are actually loaded.
//
// A deep link either points at its target directly or wraps it in a "url"
// query parameter:
//
//	myapp://open?url=https%3A%2F%2Fshop.example.com%2Fcart
//
// Wrapped targets carry the next navigation state, and on a development
// host ("dev." prefix) they are pointed back at that host.
package deeplink

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/zhubert/navgroup/logger"
	"github.com/zhubert/navgroup/navstate"
	"github.com/zhubert/navgroup/params"
)

// ErrInvalidDeepLink is returned for deep links that are not absolute URLs.
var ErrInvalidDeepLink = errors.New("deeplink: invalid deep link")

// WrappedParam is the query parameter a wrapped target is carried in.
const WrappedParam = "url"

// DevHostPrefix marks a development host.
const DevHostPrefix = "dev."

// Options controls a single resolution.
type Options struct {
	// Next, if set, is written into a wrapped target's query.
	Next *navstate.State

	// RewriteHostDev points a wrapped target at the current host when the
	// current host is a development host.
	RewriteHostDev bool
}

// Resolver resolves deep links relative to the host of the current context.
type Resolver struct {
	host  string
	rules *Rules
	log   *slog.Logger
}

// NewResolver returns a Resolver for a context running at currentHost
// (host[:port], may be empty). rules may be nil.
func NewResolver(currentHost string, rules *Rules) *Resolver {
	return &Resolver{
		host:  currentHost,
		rules: rules,
		log:   logger.WithComponent("deeplink"),
	}
}

// InDev reports whether the current host is a development host.
func (r *Resolver) InDev() bool {
	return strings.HasPrefix(strings.ToLower(r.host), DevHostPrefix)
}

// Resolve returns the target URL for deeplink.
func (r *Resolver) Resolve(deeplink string, opts Options) (*url.URL, error) {
	link, err := parseAbsolute(deeplink)
	if err != nil {
		return nil, err
	}

	target := link
	if wrapped := link.Query().Get(WrappedParam); wrapped != "" {
		target, err = parseAbsolute(wrapped)
		if err != nil {
			return nil, fmt.Errorf("unwrap %q: %w", deeplink, err)
		}

		if opts.Next != nil {
			p := params.FromURL(target)
			opts.Next.Encode(p)
			p.ApplyTo(target)
		}
		if r.InDev() && opts.RewriteHostDev {
			target.Host = r.host
		}
	}

	if r.rules.Apply(target) {
		r.log.Debug("host rule applied", "deeplink", deeplink, "target", target.String())
	}

	if !strings.HasPrefix(target.Scheme, "http") {
		DebugPossibleUnhandledURL(r.log, deeplink, target)
	}
	return target, nil
}

// SpawnTarget resolves a deep link for a child opened in its own group.
// The group parameters are the spawner's business, and the host is never
// rewritten to the current one.
func (r *Resolver) SpawnTarget(deeplink string) (*url.URL, error) {
	return r.Resolve(deeplink, Options{})
}

func parseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeepLink, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: %q has no scheme", ErrInvalidDeepLink, raw)
	}
	return u, nil
}

// DebugPossibleUnhandledURL warns that target is unlikely to be loadable
// by a web context.
func DebugPossibleUnhandledURL(log *slog.Logger, deeplink string, target *url.URL) {
	var pairs []string
	for key, values := range target.Query() {
		for _, v := range values {
			pairs = append(pairs, key+": "+v)
		}
	}
	slices.Sort(pairs)

	log.Warn("possible unhandled URL",
		"origin", target.Scheme+"://"+target.Host+target.Path,
		"params", pairs,
		"parsed", target.String(),
		"deeplink", deeplink,
	)
}
