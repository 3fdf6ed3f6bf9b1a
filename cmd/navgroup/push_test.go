package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhubert/navgroup/config"
)

const wrappedCart = "myapp://open?url=https%3A%2F%2Fshop.example.com%2Fcart"

func TestPush(t *testing.T) {
	cfgPath := newTestConfig(t, nil)

	tests := []struct {
		name    string
		current string
		link    string
		flags   []string
		want    string
	}{
		{
			name:    "wrapped link pushes a screen",
			current: "https://shop.example.com/home",
			want:    "https://shop.example.com/cart?__navgroup__group=main&__navgroup__screens=2",
		},
		{
			name:    "dev host rewrite",
			current: "https://dev.shop.example.com:8443/home",
			want:    "https://dev.shop.example.com:8443/cart?__navgroup__group=main&__navgroup__screens=2",
		},
		{
			name:    "keep host",
			current: "https://dev.shop.example.com/home",
			flags:   []string{"--keep-host"},
			want:    "https://shop.example.com/cart?__navgroup__group=main&__navgroup__screens=2",
		},
		{
			name:    "replace in a group",
			current: "https://shop.example.com/home?__navgroup__group=cart&__navgroup__screens=4",
			flags:   []string{"--replace"},
			want:    "https://shop.example.com/cart?__navgroup__group=cart&__navgroup__screens=4",
		},
		{
			name:    "new group",
			current: "https://shop.example.com/home?__navgroup__group=cart&__navgroup__screens=4",
			flags:   []string{"--group", "checkout"},
			want:    "https://shop.example.com/cart?__navgroup__group=checkout&__navgroup__screens=1",
		},
		{
			name:    "direct link is left alone",
			current: "https://dev.shop.example.com/home",
			link:    "https://other.example.com/page?a=1",
			want:    "https://other.example.com/page?a=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := tt.link
			if link == "" {
				link = wrappedCart
			}
			args := append([]string{"--config", cfgPath, "push", tt.current, link}, tt.flags...)
			out, err := execute(t, &RootOptions{}, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestPushDevHostRewriteDisabled(t *testing.T) {
	cfgPath := newTestConfig(t, func(c *config.Config) { c.SetDevHostRewrite(false) })

	out, err := execute(t, &RootOptions{}, "--config", cfgPath, "push", "https://dev.shop.example.com/", wrappedCart)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/cart?__navgroup__group=main&__navgroup__screens=2\n", out)
}

func TestPushHostRules(t *testing.T) {
	cfgPath := newTestConfig(t, nil)
	rules := `rules:
  - match: "*.example.com"
    host: localhost:8080
    scheme: http
`
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(cfgPath), "hosts.yaml"), []byte(rules), 0644))

	out, err := execute(t, &RootOptions{}, "--config", cfgPath, "push", "https://www.example.org/", wrappedCart)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/cart?__navgroup__group=main&__navgroup__screens=2\n", out)
}

func TestPushBadHostRules(t *testing.T) {
	cfgPath := newTestConfig(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(cfgPath), "hosts.yaml"), []byte("rules:\n  - host: x\n"), 0644))

	_, err := execute(t, &RootOptions{}, "--config", cfgPath, "push", "https://www.example.org/", wrappedCart)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid host rules")
}

func TestPushJSON(t *testing.T) {
	cfgPath := newTestConfig(t, nil)

	out, err := execute(t, &RootOptions{}, "--config", cfgPath, "--format", "json", "push", "https://shop.example.com/", wrappedCart)
	require.NoError(t, err)

	var got pushOutput
	resp := decodeResponse(t, out, &got)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "https://shop.example.com/", got.From)
	assert.Equal(t, "https://shop.example.com/cart?__navgroup__group=main&__navgroup__screens=2", got.Target)
}

func TestPushInvalidDeepLink(t *testing.T) {
	cfgPath := newTestConfig(t, nil)

	out, err := execute(t, &RootOptions{}, "--config", cfgPath, "--format", "json", "push", "https://shop.example.com/", "no-scheme")
	require.Error(t, err)

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "invalid deep link")
}
