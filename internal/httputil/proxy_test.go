// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxyRotator_Rotate(t *testing.T) {
	r, err := NewProxyRotator([]string{"socks5://127.0.0.1:9050", "http://proxy2:8080"})
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "127.0.0.1:9050", r.Current().Host)
	assert.Equal(t, 0, r.Index())

	assert.Equal(t, "proxy2:8080", r.Rotate().Host)
	assert.Equal(t, 1, r.Index())

	// Wraps around.
	assert.Equal(t, "127.0.0.1:9050", r.Rotate().Host)
	assert.Equal(t, 0, r.Index())
}

func TestProxyRotator_Empty(t *testing.T) {
	r, err := NewProxyRotator(nil)
	require.NoError(t, err)

	assert.Nil(t, r.Current())
	assert.Nil(t, r.Rotate())
	assert.Equal(t, 0, r.Len())

	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	u, err := r.ProxyFunc()(req)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestProxyRotator_NilReceiver(t *testing.T) {
	var r *ProxyRotator
	assert.Nil(t, r.Current())
	assert.Nil(t, r.Rotate())
	assert.Equal(t, 0, r.Len())
}

func TestNewProxyRotator_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		proxy string
	}{
		{"no scheme", "127.0.0.1:9050"},
		{"no host", "socks5://"},
		{"bad escape", "http://%zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProxyRotator([]string{tt.proxy})
			assert.Error(t, err)
		})
	}
}

func TestNewClient_UsesRotator(t *testing.T) {
	r, err := NewProxyRotator([]string{"http://proxy1:1", "http://proxy2:2"})
	require.NoError(t, err)

	client := NewClient(ClientOptions{Proxies: r, InsecureTLS: true})
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)

	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)

	u, err := transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "proxy1:1", u.Host)

	r.Rotate()
	u, err = transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "proxy2:2", u.Host)
}
