package store

import "errors"

var (
	// ErrNotFound is returned when a requested node row doesn't exist or is deleted.
	ErrNotFound = errors.New("arbor: node row not found")

	// ErrPositionTaken is returned when inserting a row whose (tree id, a11, a21)
	// position is already occupied. The append loop treats it as a retry signal.
	ErrPositionTaken = errors.New("arbor: tree position already occupied")

	// ErrParentNotFound is returned when inserting a child whose parent row
	// doesn't exist or is deleted.
	ErrParentNotFound = errors.New("arbor: parent row not found")
)
