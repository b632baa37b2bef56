package matrix

import "errors"

var (
	// ErrOverflow is returned when a composed encoding would exceed MaxEntry.
	ErrOverflow = errors.New("arbor: matrix entry overflow")

	// ErrInvariant is returned when an encoding fails the unimodularity or
	// sign checks. It indicates a corrupted or externally tampered encoding
	// and must never be ignored.
	ErrInvariant = errors.New("arbor: encoding invariant violated")

	// ErrPosition is returned when a sibling position is negative.
	ErrPosition = errors.New("arbor: sibling position must be non-negative")
)
