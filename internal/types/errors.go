package types

import "errors"

var (
	// ErrUnknownBucket is returned when a binding bucket name is not recognised.
	ErrUnknownBucket = errors.New("unknown binding bucket")

	// ErrInvalidSubquery is returned for a sub-select that is neither a query nor raw SQL.
	ErrInvalidSubquery = errors.New("sub-select must be a query or raw SQL")

	// ErrNoCodec is returned when a composite insert value has no codec to encode it.
	ErrNoCodec = errors.New("no codec configured for composite value")
)
