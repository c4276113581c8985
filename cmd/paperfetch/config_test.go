// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperfetch/pkg/types"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetEnvPrefix("PAPERFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, types.DefaultConfig())
	return v
}

func TestDecodeConfig_Defaults(t *testing.T) {
	c, err := decodeConfig(newTestViper(t))
	require.NoError(t, err)

	d := types.DefaultConfig()
	assert.Equal(t, d.Fetcher.MaxAttempts, c.Fetcher.MaxAttempts)
	assert.Equal(t, d.Fetcher.RetryDelay, c.Fetcher.RetryDelay)
	assert.Equal(t, d.Fetcher.MirrorDirectory, c.Fetcher.MirrorDirectory)
	assert.Equal(t, d.Search, c.Search)
	assert.Equal(t, d.Acquisition, c.Acquisition)
	assert.Equal(t, d.QueryGen, c.QueryGen)
	assert.Equal(t, d.Log, c.Log)
	assert.Empty(t, c.Fetcher.Mirrors)
}

func TestDecodeConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PAPERFETCH_FETCHER_MAX_ATTEMPTS", "5")
	t.Setenv("PAPERFETCH_FETCHER_CAPTCHA_WAIT", "90s")
	t.Setenv("PAPERFETCH_SEARCH_BACKEND", "arxiv")
	t.Setenv("PAPERFETCH_ACQUISITION_OUTPUT_DIR", "out")

	c, err := decodeConfig(newTestViper(t))
	require.NoError(t, err)
	assert.Equal(t, 5, c.Fetcher.MaxAttempts)
	assert.Equal(t, 90*time.Second, c.Fetcher.CaptchaWait)
	assert.Equal(t, "arxiv", c.Search.Backend)
	assert.Equal(t, "out", c.Acquisition.OutputDir)
	assert.Equal(t, 30*time.Second, c.Fetcher.RetryDelay)
}

func TestDecodeConfig_Invalid(t *testing.T) {
	v := newTestViper(t)
	v.Set("fetcher.max_attempts", 0)

	_, err := decodeConfig(v)
	require.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestDecodeConfig_NestedYAML(t *testing.T) {
	v := newTestViper(t)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
fetcher:
  mirrors:
    - https://m1.example
    - https://m2.example
  proxies:
    - socks5://127.0.0.1:9050
search:
  min_delay: 1s
  max_delay: 2s
`)))

	c, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://m1.example", "https://m2.example"}, c.Fetcher.Mirrors)
	assert.Equal(t, []string{"socks5://127.0.0.1:9050"}, c.Fetcher.ProxyList())
	assert.Equal(t, time.Second, c.Search.MinDelay)
	assert.Equal(t, 2*time.Second, c.Search.MaxDelay)
}

func TestFlagKeysAreRegistered(t *testing.T) {
	v := newTestViper(t)
	for flag, key := range flagKeys {
		assert.True(t, v.IsSet(key), "flag %s maps to unregistered key %s", flag, key)
	}
}
