//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Search lists candidates for $QUERY and saves them to results/latest.yaml.
func Search() error {
	mg.Deps(Build, Init)
	query := os.Getenv("QUERY")
	if query == "" {
		return errors.New("set QUERY to a search query")
	}
	return sh.RunV(binPath(), "search", query, "--limit", envOr("LIMIT", "10"), "--out", "results/latest.yaml")
}
