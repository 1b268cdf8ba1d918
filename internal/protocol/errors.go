package protocol

import "errors"

// ErrUnrecognised is returned by Parse when the input matches none of the
// command shapes. It is a normal outcome: the caller sends no response.
var ErrUnrecognised = errors.New("protocol: unrecognised command")
