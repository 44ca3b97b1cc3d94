package core

import "errors"

// Failure taxonomy for a generation pass. Callers match with errors.Is.
var (
	// ErrResolutionUnavailable means the mesh source has no base mesh for
	// the requested level.
	ErrResolutionUnavailable = errors.New("resolution unavailable")

	// ErrDisplacementFailure wraps any compute backend failure.
	ErrDisplacementFailure = errors.New("displacement failure")

	// ErrMeshIntegrity marks an invariant violation between stages.
	ErrMeshIntegrity = errors.New("mesh integrity error")

	// ErrInvalidParameter is returned before dispatch for caller errors.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrMalformedGradient comes from a gradient that cannot be evaluated.
	ErrMalformedGradient = errors.New("malformed gradient")

	// ErrGenerationInProgress rejects a pass requested while another runs.
	ErrGenerationInProgress = errors.New("generation already in progress")
)
