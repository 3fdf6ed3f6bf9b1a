package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhubert/navgroup/config"
	"github.com/zhubert/navgroup/groupstore"
)

func TestStoreRoundTrip(t *testing.T) {
	for _, kind := range []groupstore.Kind{groupstore.KindSQLite, groupstore.KindFile} {
		t.Run(string(kind), func(t *testing.T) {
			cfgPath := newTestConfig(t, func(c *config.Config) {
				require.NoError(t, c.SetStoreBackend(kind))
			})
			run := func(args ...string) string {
				t.Helper()
				out, err := execute(t, &RootOptions{}, append([]string{"--config", cfgPath, "store"}, args...)...)
				require.NoError(t, err)
				return out
			}

			assert.Equal(t, "{}\n", run("get", "cart"), "unset entries read as {}")

			assert.Equal(t, groupstore.Key("cart", "draft")+"\n", run("set", "cart", "draft", `{"items":[1,2]}`))
			run("set", "cart", groupstore.DefaultSelector, `"hello"`)
			run("set", "other", "draft", `true`)

			assert.JSONEq(t, `{"items":[1,2]}`, run("get", "cart", "draft"))
			assert.Equal(t, `"hello"`+"\n", run("get", "cart"))
			assert.Equal(t, "default\ndraft\n", run("list", "cart"))

			assert.Equal(t, "evicted 2 entries\n", run("evict", "cart"))
			assert.Empty(t, run("list", "cart"))
			assert.Equal(t, "{}\n", run("get", "cart", "draft"))
			assert.Equal(t, "true\n", run("get", "other", "draft"), "other groups are untouched")
		})
	}
}

func TestStoreJSON(t *testing.T) {
	cfgPath := newTestConfig(t, nil)

	_, err := execute(t, &RootOptions{}, "--config", cfgPath, "store", "set", "cart", "draft", `{"n":1}`)
	require.NoError(t, err)

	out, err := execute(t, &RootOptions{}, "--config", cfgPath, "--format", "json", "store", "get", "cart", "draft")
	require.NoError(t, err)
	var value map[string]int
	decodeResponse(t, out, &value)
	assert.Equal(t, map[string]int{"n": 1}, value)

	out, err = execute(t, &RootOptions{}, "--config", cfgPath, "--format", "json", "store", "list", "empty-group")
	require.NoError(t, err)
	var selectors []string
	decodeResponse(t, out, &selectors)
	assert.NotNil(t, selectors)
	assert.Empty(t, selectors)

	out, err = execute(t, &RootOptions{}, "--config", cfgPath, "--format", "json", "store", "evict", "cart")
	require.NoError(t, err)
	var evicted map[string]int
	decodeResponse(t, out, &evicted)
	assert.Equal(t, 1, evicted["evicted"])
}

func TestStoreSetRejectsInvalidJSON(t *testing.T) {
	cfgPath := newTestConfig(t, nil)

	_, err := execute(t, &RootOptions{}, "--config", cfgPath, "store", "set", "cart", "draft", `{not json`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestStoreRejectsBadGroup(t *testing.T) {
	cfgPath := newTestConfig(t, nil)

	_, err := execute(t, &RootOptions{}, "--config", cfgPath, "store", "set", "a:b", "draft", `1`)
	require.ErrorIs(t, err, groupstore.ErrInvalidGroup)

	_, err = execute(t, &RootOptions{}, "--config", cfgPath, "store", "get", "", "draft")
	require.ErrorIs(t, err, groupstore.ErrInvalidGroup)
}
