package docache

import "errors"

// Configuration errors. New surfaces these synchronously, before any backend
// call is attempted; they are never retried.
var (
	ErrNilBackend  = errors.New("docache: backend is required")
	ErrNoCodec     = errors.New("docache: codec is required")
	ErrNoNamespace = errors.New("docache: namespace is required")
)

// ErrEmptyKey is returned by Get and Set for a key with no segments.
// The empty key is reserved for Clear, where it means "clear everything".
var ErrEmptyKey = errors.New("docache: empty key")
