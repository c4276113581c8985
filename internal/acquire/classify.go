// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import "strings"

// IdentifierType classifies an input identifier and selects the
// resolution strategy.
type IdentifierType int

const (
	// TypeDOILike is the fallback for anything that is not a URL or a
	// numeric ID: DOIs, bare domains, free-form references.
	TypeDOILike IdentifierType = iota
	// TypeDirectURL is an http(s) URL ending in "pdf", fetched as-is.
	TypeDirectURL
	// TypeIndirectURL is any other http(s) URL; it needs resolution.
	TypeIndirectURL
	// TypeNumericID is an all-digit PubMed-style ID.
	TypeNumericID
)

func (t IdentifierType) String() string {
	switch t {
	case TypeDirectURL:
		return "url-direct"
	case TypeIndirectURL:
		return "url-non-direct"
	case TypeNumericID:
		return "pmid"
	default:
		return "doi"
	}
}

// Classify tags identifier. Every string maps to exactly one type.
func Classify(identifier string) IdentifierType {
	if strings.HasPrefix(identifier, "http") {
		if strings.HasSuffix(identifier, "pdf") {
			return TypeDirectURL
		}
		return TypeIndirectURL
	}
	if isDigits(identifier) {
		return TypeNumericID
	}
	return TypeDOILike
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Identifier is a raw identifier together with its classification.
type Identifier struct {
	raw string
	typ IdentifierType
}

// NewIdentifier classifies raw once.
func NewIdentifier(raw string) Identifier {
	return Identifier{raw: raw, typ: Classify(raw)}
}

// Raw returns the identifier exactly as given.
func (id Identifier) Raw() string { return id.raw }

// Type returns the classification.
func (id Identifier) Type() IdentifierType { return id.typ }

func (id Identifier) String() string { return id.raw }
