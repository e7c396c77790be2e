package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// traveler does not exist in the store.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails presence or format checks
// (e.g. missing first_name, malformed travel_start).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrStore marks a failure of the underlying persistence layer
// (connectivity, constraint violation, cancelled context). It is never retried.
// Handlers should map this to HTTP 500.
var ErrStore = errors.New("store error")

// ErrInvalidState is returned when a workflow trigger is not defined for the
// record's current status, e.g. archiving a traveler that is still pending.
// Handlers should map this to HTTP 409 Conflict.
var ErrInvalidState = errors.New("invalid state")
