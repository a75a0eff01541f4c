package mcpimage

import "errors"

var (
	// Scheduler errors.
	ErrSystemBusy    = errors.New("mcpimage: system busy")
	ErrManagerClosed = errors.New("mcpimage: manager closed")

	// Configuration errors.
	ErrInvalidCapacity     = errors.New("mcpimage: invalid resource capacity")
	ErrInvalidRequirements = errors.New("mcpimage: invalid resource requirements")

	// Input errors.
	ErrEmptyInput       = errors.New("mcpimage: empty input")
	ErrValidationFailed = errors.New("mcpimage: input validation failed")
)
