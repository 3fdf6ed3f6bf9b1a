// Package params reads and writes navgroup's own query parameters.
// Every parameter is stored under a fixed prefix so it never collides with
// the application's query string.
package params

import (
	"fmt"
	"net/url"
	"strconv"
)

// Prefix is prepended to every parameter name on the wire.
const Prefix = "__navgroup__"

// Name identifies one of the recognized parameters.
type Name string

const (
	// Group carries the opaque screen group identifier.
	Group Name = "group"
	// Screens carries the number of screens pushed in the current group.
	Screens Name = "screens"
)

// Key returns the prefixed query key for a parameter name.
func Key(name Name) string {
	return Prefix + string(name)
}

// Params wraps url.Values with prefixed accessors.
// Unrelated query parameters pass through untouched.
type Params struct {
	values url.Values
}

// Parse decodes a raw query string. Malformed pairs are dropped rather than
// failing, matching how browsers treat location.search.
func Parse(rawQuery string) *Params {
	values, _ := url.ParseQuery(rawQuery)
	if values == nil {
		values = url.Values{}
	}
	return &Params{values: values}
}

// FromURL returns the parameters of u's query string.
func FromURL(u *url.URL) *Params {
	return Parse(u.RawQuery)
}

// Get returns the raw value for name, or def when it is missing or empty.
func (p *Params) Get(name Name, def string) string {
	if v := p.values.Get(Key(name)); v != "" {
		return v
	}
	return def
}

// GetInt returns the value for name parsed as an integer, or def when the
// value is missing or not a number.
func (p *Params) GetInt(name Name, def int) int {
	return Transform(p, name, def, func(s string) (int, error) {
		return strconv.Atoi(s)
	})
}

// Transform reads name and converts it with fn. Any failure yields def.
func Transform[T any](p *Params, name Name, def T, fn func(string) (T, error)) T {
	raw := p.values.Get(Key(name))
	if raw == "" {
		return def
	}
	v, err := fn(raw)
	if err != nil {
		return def
	}
	return v
}

// Set stores the string form of value under name, replacing prior values.
func (p *Params) Set(name Name, value any) {
	p.values.Set(Key(name), fmt.Sprint(value))
}

// Del removes name.
func (p *Params) Del(name Name) {
	p.values.Del(Key(name))
}

// Has reports whether name is present.
func (p *Params) Has(name Name) bool {
	return p.values.Has(Key(name))
}

// Encode returns the query string, sorted by key.
func (p *Params) Encode() string {
	return p.values.Encode()
}

// ApplyTo replaces u's query string with the encoded parameters.
func (p *Params) ApplyTo(u *url.URL) {
	u.RawQuery = p.Encode()
}
