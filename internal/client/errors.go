package client

import "errors"

var (
	// ErrInvalidPort is returned when the target port is outside 1-65535.
	ErrInvalidPort = errors.New("client: invalid port")

	// ErrSendFailed is returned when a request datagram cannot be written.
	ErrSendFailed = errors.New("client: send failed")

	// ErrReceiveFailed is returned for socket errors other than a timeout.
	ErrReceiveFailed = errors.New("client: receive failed")
)
