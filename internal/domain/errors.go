package domain

import "errors"

// ErrValidation marks rejected input: missing fields, invalid enum values,
// consent-gate failures. Handlers map it to a 400 response.
var ErrValidation = errors.New("validation failed")
