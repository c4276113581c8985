// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures and configuration for paperfetch.
package types

// SearchResult is a candidate reference returned by a search backend.
// It is ephemeral: the orchestrator hands CandidateURL to the fetcher and
// discards the result.
type SearchResult struct {
	// Title is the entry title as shown by the source.
	Title string `json:"title" yaml:"title"`

	// CandidateURL is the link believed to lead to the document: a direct
	// PDF link when the source offers one, otherwise the landing page.
	CandidateURL string `json:"candidate_url" yaml:"candidate_url"`

	// Source identifies which backend produced the result (e.g. "scholar", "arxiv").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}
