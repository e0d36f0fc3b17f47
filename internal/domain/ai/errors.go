package ai

import "errors"

// ErrQuotaExceeded indicates the provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrMalformedOutput indicates the provider answered but the payload did not
// match the requested JSON schema.
var ErrMalformedOutput = errors.New("ai output malformed")
