package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDuplicateID) {
//	    // seed file lists the same id twice
//	}
var (
	// ErrInvalidSeed is returned when a seed dataset cannot be parsed.
	ErrInvalidSeed = errors.New("device: invalid seed dataset")

	// ErrDuplicateID is returned when a seed lists the same id twice for one kind.
	ErrDuplicateID = errors.New("device: duplicate id")

	// ErrInvalidID is returned when a seed entry has a negative id.
	ErrInvalidID = errors.New("device: invalid id")

	// ErrInvalidKind is returned when a kind string is not zone, button or shade.
	ErrInvalidKind = errors.New("device: invalid kind")
)
