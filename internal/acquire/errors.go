// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"errors"
	"fmt"

	"github.com/pdiddy/paperfetch/internal/mirror"
)

// Failure reasons. Every failed Fetch or Download returns a *Failure whose
// Reason is one of these; errors.Is matches against them.
var (
	// ErrNotFound: no candidate URL could be resolved. Not retried.
	ErrNotFound = errors.New("not found")
	// ErrNotAPDF: the response was not a PDF. Not retried.
	ErrNotAPDF = errors.New("not a pdf")
	// ErrCaptchaBlocked: a bot challenge persisted past the attempt budget.
	ErrCaptchaBlocked = errors.New("captcha blocked")
	// ErrNetwork: transient connectivity failures exhausted the attempt budget.
	ErrNetwork = errors.New("network error")
	// ErrMirrorsExhausted: the mirror registry ran out of live mirrors.
	// The fetcher stays unusable for mirror-backed identifiers until the
	// registry is refreshed.
	ErrMirrorsExhausted = mirror.ErrExhausted
)

// Request-level problems that no other mirror can fix. The fetcher maps
// them to a terminal reason instead of dropping the mirror.
var (
	errMalformedURL = errors.New("malformed request URL")
	errTooLarge     = errors.New("response body too large")
)

// Failure describes why an identifier could not be fetched.
type Failure struct {
	Reason     error
	Identifier string
	Attempts   int
	Err        error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v (identifier %q, %d attempt(s))", f.Reason, f.Err, f.Identifier, f.Attempts)
	}
	return fmt.Sprintf("%s (identifier %q, %d attempt(s))", f.Reason, f.Identifier, f.Attempts)
}

// Unwrap exposes both the reason sentinel and the underlying cause.
func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Reason}
	}
	return []error{f.Reason, f.Err}
}

// ReasonCode returns a short machine-readable code for err, suitable for
// reports and the acquisition ledger.
func ReasonCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotAPDF):
		return "not_a_pdf"
	case errors.Is(err, ErrCaptchaBlocked):
		return "captcha_blocked"
	case errors.Is(err, ErrMirrorsExhausted):
		return "mirrors_exhausted"
	case errors.Is(err, ErrNetwork):
		return "network_error"
	default:
		return "error"
	}
}
