package part

import "fmt"

// CorruptTableError is returned when on-disk bytes cannot be parsed as a
// valid table of the attempted kind.
type CorruptTableError struct {
	kind   string
	reason string
}

func (e *CorruptTableError) Error() string {
	return fmt.Sprintf("corrupt %s table: %s", e.kind, e.reason)
}

func NewCorruptTableError(kind, reason string) *CorruptTableError {
	return &CorruptTableError{kind: kind, reason: reason}
}

// UnrepresentableLayoutError is returned when a requested layout or edit
// cannot be encoded in the table kind, e.g. a fifth MBR primary partition
// or a label on an MBR entry.
type UnrepresentableLayoutError struct {
	kind   string
	reason string
}

func (e *UnrepresentableLayoutError) Error() string {
	return fmt.Sprintf("layout not representable in %s table: %s", e.kind, e.reason)
}

func NewUnrepresentableLayoutError(kind, reason string) *UnrepresentableLayoutError {
	return &UnrepresentableLayoutError{kind: kind, reason: reason}
}
