package protocol

import "errors"

var (
	ErrUnknownMessage = errors.New("protocol: unknown message id")
	ErrUnknownField   = errors.New("protocol: unknown field")
	ErrValueType      = errors.New("protocol: value type does not fit field")
	ErrPayloadSize    = errors.New("protocol: payload size does not match message")
)
