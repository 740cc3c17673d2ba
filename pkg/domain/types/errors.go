package types

import "errors"

// Error categories. Errors returned by use cases wrap one of them and callers
// classify with errors.Is.
var (
	// ErrAuthentication means no authentication check passed for the request
	ErrAuthentication = errors.New("request is not authenticated")

	// ErrDerivation means a dimension of the provenance triple could not be resolved
	ErrDerivation = errors.New("failed to derive provenance from payload")

	// ErrDispatch means the build executor rejected the build submission
	ErrDispatch = errors.New("failed to dispatch build")

	// ErrUnsupportedFlavor means no archive handler exists for the detected host flavor
	ErrUnsupportedFlavor = errors.New("unsupported git host flavor")

	// ErrArchive means fetching, transforming or uploading a code archive failed
	ErrArchive = errors.New("failed to normalize code archive")

	// ErrInvalidConfig means configuration values could not be used
	ErrInvalidConfig = errors.New("invalid configuration")
)
