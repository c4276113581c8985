// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"sync"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// Replay serves previously saved search results in order, so a saved
// search can drive Acquire without querying the source again. Each Search
// call returns the next batch of up to limit results and ignores the
// query text.
type Replay struct {
	mu      sync.Mutex
	results []types.SearchResult
	next    int
}

// NewReplay returns a Replay over results.
func NewReplay(results []types.SearchResult) *Replay {
	return &Replay{results: results}
}

// Queries returns one label per result, for use as the Acquire query list.
func (r *Replay) Queries() []string {
	out := make([]string, len(r.results))
	for i, res := range r.results {
		out[i] = res.Title
		if out[i] == "" {
			out[i] = res.CandidateURL
		}
	}
	return out
}

// Search returns the next batch of saved results.
func (r *Replay) Search(_ context.Context, _ string, limit int) ([]types.SearchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit < 1 {
		limit = 1
	}
	end := min(r.next+limit, len(r.results))
	batch := r.results[r.next:end]
	r.next = end
	return batch, nil
}
