// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// ResultFile is the on-disk representation of a search and its results.
// A saved search can be handed to the acquire command later without
// querying the source again.
type ResultFile struct {
	Query   string               `yaml:"query"`
	Backend string               `yaml:"backend"`
	Limit   int                  `yaml:"limit"`
	Results []types.SearchResult `yaml:"results"`
	Summary ResultSummary        `yaml:"summary"`
}

// ResultSummary stores result statistics and a timestamp.
type ResultSummary struct {
	Total     int       `yaml:"total"`
	Error     string    `yaml:"error,omitempty"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteResultFile saves a search and its results to a YAML file. searchErr,
// when non-nil, is kept in the summary so partial results stay explained.
func WriteResultFile(path, query, backend string, limit int, results []types.SearchResult, searchErr error) error {
	rf := ResultFile{
		Query:   query,
		Backend: backend,
		Limit:   limit,
		Results: results,
		Summary: ResultSummary{
			Total:     len(results),
			Timestamp: time.Now().UTC(),
		},
	}
	if searchErr != nil {
		rf.Summary.Error = searchErr.Error()
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling result file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadResultFile loads a previously saved result file from disk.
func ReadResultFile(path string) (*ResultFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result file: %w", err)
	}
	var rf ResultFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing result file: %w", err)
	}
	return &rf, nil
}
