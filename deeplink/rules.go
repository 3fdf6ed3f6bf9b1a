package deeplink

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// HostRule rewrites the host (and optionally the scheme) of target URLs
// whose host matches Match. A Match starting with "*." matches any
// subdomain of the rest, but not the bare domain.
type HostRule struct {
	Match  string `yaml:"match"`
	Host   string `yaml:"host"`
	Scheme string `yaml:"scheme,omitempty"`
}

// Rules is the host rules file, usually hosts.yaml in the config directory:
//
//	rules:
//	  - match: app.example.com
//	    host: staging.example.com
//	  - match: "*.internal.example.com"
//	    host: localhost:8080
//	    scheme: http
type Rules struct {
	Rules []HostRule `yaml:"rules"`
}

// LoadRules reads a host rules file. A missing or empty file yields no rules.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Rules{}, nil
		}
		return nil, fmt.Errorf("failed to read host rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes host rules, rejecting unknown fields.
func ParseRules(data []byte) (*Rules, error) {
	var rules Rules
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&rules); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse host rules: %w", err)
	}

	if err := rules.validate(); err != nil {
		return nil, fmt.Errorf("invalid host rules: %w", err)
	}
	return &rules, nil
}

func (r *Rules) validate() error {
	for i, rule := range r.Rules {
		if rule.Match == "" {
			return fmt.Errorf("rule %d: match is required", i)
		}
		if rule.Host == "" && rule.Scheme == "" {
			return fmt.Errorf("rule %d (%s): host or scheme is required", i, rule.Match)
		}
		if strings.ContainsAny(rule.Host, "/?#") {
			return fmt.Errorf("rule %d (%s): host must not contain a path", i, rule.Match)
		}
	}
	return nil
}

// Apply rewrites u with the first matching rule and reports whether one matched.
func (r *Rules) Apply(u *url.URL) bool {
	if r == nil {
		return false
	}
	for _, rule := range r.Rules {
		if !rule.matches(u.Hostname()) {
			continue
		}
		if rule.Host != "" {
			u.Host = rule.Host
		}
		if rule.Scheme != "" {
			u.Scheme = rule.Scheme
		}
		return true
	}
	return false
}

func (h HostRule) matches(hostname string) bool {
	hostname = strings.ToLower(hostname)
	match := strings.ToLower(h.Match)
	if suffix, ok := strings.CutPrefix(match, "*."); ok {
		return strings.HasSuffix(hostname, "."+suffix)
	}
	return hostname == match
}
