// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"math/rand/v2"
	"net/http"
	"sync"
)

// DefaultUserAgents is a small set of desktop browser identities.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
}

// baseHeaders are sent with every request alongside a random User-Agent.
var baseHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
	"Connection":      "keep-alive",
}

// HeaderPool produces a simulated client identity per request.
type HeaderPool struct {
	mu     sync.Mutex
	agents []string
	rng    *rand.Rand
}

// NewHeaderPool returns a pool drawing from agents, or DefaultUserAgents
// when agents is empty. A nil rng uses a randomly seeded source.
func NewHeaderPool(agents []string, rng *rand.Rand) *HeaderPool {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &HeaderPool{agents: agents, rng: rng}
}

// UserAgent returns one of the pool's user agents at random.
func (p *HeaderPool) UserAgent() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agents[p.rng.IntN(len(p.agents))]
}

// Headers returns a fresh header set with a random User-Agent.
func (p *HeaderPool) Headers() http.Header {
	h := make(http.Header, len(baseHeaders)+1)
	for k, v := range baseHeaders {
		h.Set(k, v)
	}
	h.Set("User-Agent", p.UserAgent())
	return h
}

// Apply replaces req's identifying headers with a fresh random set.
func (p *HeaderPool) Apply(req *http.Request) {
	for k, v := range p.Headers() {
		req.Header[k] = v
	}
}
