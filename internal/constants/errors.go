package constants

import "errors"

// Token introspection errors.
var (
	ErrInvalidJWTFormat  = errors.New("invalid JWT format")
	ErrNoExpirationClaim = errors.New("no expiration claim found")
)

// Mock fixture errors.
var (
	ErrMockFileNotSupported = errors.New("unsupported mock file format")
)

// Validation errors.
var (
	ErrDirectoryTraversalDetected = errors.New("directory traversal detected in file path")
	ErrNotRegularFile             = errors.New("path is not a regular file")
)
