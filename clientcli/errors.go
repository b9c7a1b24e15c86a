package clientcli

import "errors"

// Errors for gateway file lookups.
var (
	ErrGatewayNotFound = errors.New("gateway not found")
	ErrNoGateways      = errors.New("no gateways configured")
)

// Errors for configuration validation.
var (
	ErrConfigRequired = errors.New("config is required")
)

// Errors for input validation.
var (
	ErrNoPaths   = errors.New("no paths provided")
	ErrEmptyPath = errors.New("path is required")
)

// Errors for resolving a file argument against the inbox listing.
var (
	ErrFileNotFound  = errors.New("file not found in inbox")
	ErrAmbiguousName = errors.New("name matches more than one file")
)
