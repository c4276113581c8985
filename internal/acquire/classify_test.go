// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  IdentifierType
	}{
		{"direct https pdf", "https://example.com/paper.pdf", TypeDirectURL},
		{"direct http pdf", "http://example.com/paper.pdf", TypeDirectURL},
		{"direct pdf without dot", "https://example.com/download/pdf", TypeDirectURL},
		{"indirect https", "https://www.nature.com/articles/s41586-021-03549-5", TypeIndirectURL},
		{"indirect with pdf query", "https://example.com/paper.pdf?download=true", TypeIndirectURL},
		{"pmid", "31452104", TypeNumericID},
		{"single digit", "7", TypeNumericID},
		{"doi", "10.1038/s41586-021-03549-5", TypeDOILike},
		{"bare domain", "example.com/paper", TypeDOILike},
		{"digits with space", "123 456", TypeDOILike},
		{"empty", "", TypeDOILike},
		{"leading space url", " https://example.com/a.pdf", TypeDOILike},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.input))
		})
	}
}

func TestClassify_Pure(t *testing.T) {
	inputs := []string{"https://x/y.pdf", "https://x/y", "123", "10.1/abc", ""}
	for _, in := range inputs {
		first := Classify(in)
		for range 3 {
			assert.Equal(t, first, Classify(in), "Classify(%q) changed between calls", in)
		}
	}
}

func TestNewIdentifier(t *testing.T) {
	id := NewIdentifier("10.1038/s41586-021-03549-5")
	assert.Equal(t, TypeDOILike, id.Type())
	assert.Equal(t, "10.1038/s41586-021-03549-5", id.Raw())
	assert.Equal(t, "doi", id.Type().String())
}

func TestIdentifierTypeString(t *testing.T) {
	assert.Equal(t, "url-direct", TypeDirectURL.String())
	assert.Equal(t, "url-non-direct", TypeIndirectURL.String())
	assert.Equal(t, "pmid", TypeNumericID.String())
	assert.Equal(t, "doi", TypeDOILike.String())
}
