package models

import "errors"

// Error taxonomy shared by all services. Callers branch with errors.Is;
// the HTTP layer maps these onto status codes.
var (
	// ErrInvalidInput indicates a malformed or incomplete request. No state
	// is mutated when it is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a lookup for an unknown template or status entry.
	ErrNotFound = errors.New("not found")

	// ErrProcessing indicates a mining, encoding, or store failure.
	ErrProcessing = errors.New("processing error")
)
