package scpi

import "errors"

var (
	// ErrConfigNil indicates that a nil LinkConfig was provided.
	ErrConfigNil = errors.New("link config is nil")

	// ErrNotConnected indicates that a send or query operation was invoked
	// while the link is in the not-connected state.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates that Connect was called on a link that
	// already holds an open connection.
	ErrAlreadyConnected = errors.New("already connected")
)

var (
	// ErrTimeout indicates that the response terminator did not arrive within
	// the configured response timeout.
	ErrTimeout = errors.New("response timeout")
)
