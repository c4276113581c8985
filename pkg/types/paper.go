// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// AcquisitionStatus records how an acquisition attempt ended.
type AcquisitionStatus string

const (
	StatusDownloaded AcquisitionStatus = "downloaded"
	StatusSkipped    AcquisitionStatus = "skipped"
	StatusFailed     AcquisitionStatus = "failed"
)

// AcquiredPaper describes one PDF written to disk, or one failed attempt.
// Downstream consumers only rely on PDFPath, which always ends in ".pdf"
// when Status is StatusDownloaded.
type AcquiredPaper struct {
	// RunID groups the outcomes of one CLI invocation.
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	// Identifier is the DOI, PubMed ID, or URL that was requested.
	Identifier string `json:"identifier" yaml:"identifier"`

	// Query is the search query that produced the identifier, if any.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	// Title is the search-result title, if known.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// SourceURL is the URL the PDF bytes were served from.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// PDFPath is the local filesystem path of the downloaded PDF.
	PDFPath string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`

	// Status is the attempt outcome.
	Status AcquisitionStatus `json:"status" yaml:"status"`

	// Reason is the failure reason (e.g. "not_found", "captcha_blocked").
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// AcquiredAt is when the attempt finished.
	AcquiredAt time.Time `json:"acquired_at" yaml:"acquired_at"`
}
