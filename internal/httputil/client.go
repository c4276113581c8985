// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"crypto/tls"
	"net/http"
	"time"
)

// ClientOptions configures NewClient.
type ClientOptions struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Proxies routes requests through the rotator's current proxy. Nil
	// means direct connections.
	Proxies *ProxyRotator

	// InsecureTLS disables certificate verification. Mirrors frequently
	// serve expired or self-signed certificates.
	InsecureTLS bool
}

// NewClient builds an http.Client whose transport consults the proxy
// rotator on every request.
func NewClient(opts ClientOptions) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxies != nil {
		transport.Proxy = opts.Proxies.ProxyFunc()
	}
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // untrusted mirrors
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}
}
