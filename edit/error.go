package edit

import "fmt"

// OverlapError a requested placement collides with an existing partition
type OverlapError struct {
	entry   int
	other   int
	message string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlap: %s", e.message)
}

func NewOverlapError(entry, other int, message string) *OverlapError {
	return &OverlapError{entry: entry, other: other, message: message}
}

// Entries returns the slot numbers of the colliding partitions.
func (e *OverlapError) Entries() (int, int) {
	return e.entry, e.other
}

// OutOfBoundsError a requested placement falls outside the usable range of
// the disk
type OutOfBoundsError struct {
	message string
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("out of bounds: %s", e.message)
}

func NewOutOfBoundsError(message string) *OutOfBoundsError {
	return &OutOfBoundsError{message: message}
}

// NotFoundError the partition ID named by an operation is not in the table
type NotFoundError struct {
	id string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no partition with id %s", e.id)
}

func NewNotFoundError(id string) *NotFoundError {
	return &NotFoundError{id: id}
}

// ID returns the identifier that was not found.
func (e *NotFoundError) ID() string {
	return e.id
}
