package jsonx

import "errors"

// Encode errors.
var (
	ErrNotSerializable = errors.New("value cannot be serialized")
	ErrUnassignedRef   = errors.New("reference has no assigned id")
	ErrReservedKey     = errors.New("state uses a reserved key")
	ErrCyclicValue     = errors.New("cyclic value")
)

// Decode errors.
var (
	ErrMalformedEnvelope = errors.New("malformed tagged envelope")
	ErrNoResolver        = errors.New("no reference resolver configured")
)
