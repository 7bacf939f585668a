package scraper

import "errors"

// ErrLoginFailed is returned after the captcha retry budget is exhausted.
// It is recoverable: the outer scheduler retries the whole run later.
var ErrLoginFailed = errors.New("login failed after exhausting captcha retries")

// CaptchaSolveError reports a failure to capture, decode, or solve the
// slider captcha. Callers treat it like a failed verification and retry.
type CaptchaSolveError struct {
	Err error
}

func (e *CaptchaSolveError) Error() string { return "captcha solve: " + e.Err.Error() }
func (e *CaptchaSolveError) Unwrap() error { return e.Err }

// EnumerationError means the account list could not be located. The
// authenticated session is unusable, so the whole run is aborted.
type EnumerationError struct {
	Err error
}

func (e *EnumerationError) Error() string { return "enumerating accounts: " + e.Err.Error() }
func (e *EnumerationError) Unwrap() error { return e.Err }

// FieldError marks a single unreadable figure. It is logged and the field
// left absent; sibling fields are unaffected.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return "reading " + e.Field + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }
