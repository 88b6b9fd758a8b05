// Package ids generates opaque unique identifiers for runs and steps.
package ids

import "github.com/google/uuid"

// NewRunID returns a new opaque run identifier.
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewStepID returns a new opaque step identifier.
func NewStepID() string {
	return "step_" + uuid.New().String()
}

// NewID returns a bare opaque identifier, used for approval requests and
// other secondary records that don't need a distinguishing prefix.
func NewID() string {
	return uuid.New().String()
}
