//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Fetch downloads the identifiers listed in $IDS_FILE (default ids.txt) into papers/.
func Fetch() error {
	mg.Deps(Build)
	file := envOr("IDS_FILE", "ids.txt")
	return sh.RunV(binPath(), "fetch", "-f", file, "-o", "papers")
}

// Acquire downloads $TOTAL papers (default 5) for the research topic in $TOPIC.
func Acquire() error {
	mg.Deps(Build)
	topic := os.Getenv("TOPIC")
	if topic == "" {
		return errors.New("set TOPIC to a research description")
	}
	return sh.RunV(binPath(), "acquire", "--topic", topic, "--total", envOr("TOTAL", "5"), "-o", "papers")
}

// Mirrors lists the mirrors currently discovered.
func Mirrors() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "mirrors")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
