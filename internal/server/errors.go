package server

import "errors"

// Domain-specific errors for the UDP transport.
var (
	// ErrNoHandler is returned by New when no handler is supplied.
	ErrNoHandler = errors.New("server: handler is required")

	// ErrInvalidPort is returned when the configured port is outside 0-65535.
	ErrInvalidPort = errors.New("server: invalid port")

	// ErrInvalidEncoding is reported for datagrams that are not valid UTF-8.
	// Such datagrams are dropped without a reply.
	ErrInvalidEncoding = errors.New("server: datagram is not valid UTF-8")

	// ErrAlreadyServing is returned when ListenAndServe is called twice.
	ErrAlreadyServing = errors.New("server: already serving")
)
