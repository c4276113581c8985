// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// ProxyRotator holds an ordered proxy list and the index of the proxy in use.
// The index only moves when Rotate is called; requests in between all go
// through the same proxy.
type ProxyRotator struct {
	mu      sync.Mutex
	proxies []*url.URL
	index   int
}

// NewProxyRotator parses rawProxies. An empty list yields a rotator that
// always connects directly.
func NewProxyRotator(rawProxies []string) (*ProxyRotator, error) {
	r := &ProxyRotator{}
	for _, raw := range rawProxies {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy %q: %w", raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("proxy %q must include scheme and host", raw)
		}
		r.proxies = append(r.proxies, u)
	}
	return r, nil
}

// Current returns the active proxy, or nil for a direct connection.
func (r *ProxyRotator) Current() *url.URL {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.proxies) == 0 {
		return nil
	}
	return r.proxies[r.index]
}

// Rotate advances to the next proxy, wrapping around, and returns it.
// It returns nil when no proxies are configured.
func (r *ProxyRotator) Rotate() *url.URL {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.proxies) == 0 {
		return nil
	}
	r.index = (r.index + 1) % len(r.proxies)
	return r.proxies[r.index]
}

// Index returns the rotation index.
func (r *ProxyRotator) Index() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// Len returns the number of configured proxies.
func (r *ProxyRotator) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// ProxyFunc adapts the rotator to http.Transport.Proxy.
func (r *ProxyRotator) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return r.Current(), nil
	}
}
