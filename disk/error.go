package disk

import "fmt"

// TableLockedError a second transaction was attempted while one is open
type TableLockedError struct {
	disk string
}

func (e *TableLockedError) Error() string {
	return fmt.Sprintf("transaction already open on %s", e.disk)
}

func NewTableLockedError(disk string) *TableLockedError {
	return &TableLockedError{disk: disk}
}

// NoTableError an operation that needs a partition table found none
type NoTableError struct{}

func (e *NoTableError) Error() string {
	return "disk has no partition table"
}

func NewNoTableError() *NoTableError {
	return &NoTableError{}
}
