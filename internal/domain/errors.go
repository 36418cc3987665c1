package domain

import "errors"

var (
	// ErrInvalidConfig marks an invalid chunker or application configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownStrategy is returned for an unsupported chunking strategy name.
	ErrUnknownStrategy = errors.New("unknown chunking strategy")

	// ErrNoChunks means a document produced nothing to index.
	ErrNoChunks = errors.New("no chunks created from document")

	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrFileTooLarge        = errors.New("file too large")
	ErrCollectionNotFound  = errors.New("collection not found")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrDimensionMismatch   = errors.New("vector dimension mismatch")
)
