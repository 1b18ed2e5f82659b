package core

import "github.com/pkg/errors"

// Errors
var (
	ErrNilContainer        = errors.New("nil cell container")
	ErrEmptyLinkMap        = errors.New("no links were created")
	ErrZeroMeanArea        = errors.New("mean link area is zero")
	ErrGraphNotInitialized = errors.New("link graph is not initialized")
	ErrLinkNotFound        = errors.New("link not found")
	ErrInvalidConfig       = errors.New("invalid simulation config")
	ErrSnapshotMismatch    = errors.New("snapshot does not match the link graph")
)
