package planner

import "errors"

var (
	// ErrMissingAPIKey is returned by New when the configured model
	// provider requires a credential and none was supplied. It is the only
	// fatal configuration error; everything downstream degrades per request.
	ErrMissingAPIKey = errors.New("planner: model provider API key is required")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("planner: invalid configuration")

	// ErrNoPatientText is returned when Run is called without patient text.
	ErrNoPatientText = errors.New("planner: patient text is required")

	// ErrTempDir is returned when the per-run scratch directory cannot be
	// created. Nothing else in a run can proceed without it.
	ErrTempDir = errors.New("planner: creating scratch directory failed")
)
