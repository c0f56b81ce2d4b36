package storage

import (
	"errors"
	"fmt"
)

var (
	ErrEntryNotFound    = errors.New("storage: entry not found")
	ErrTableUnknown     = errors.New("storage: unknown join table")
	ErrRelationValue    = errors.New("storage: malformed relation value")
	ErrPivotValue       = errors.New("storage: malformed pivot descriptor")
	ErrTxClosed         = errors.New("storage: transaction already finished")
	ErrUniqueViolation  = errors.New("storage: uniqueness constraint violated")
	ErrDriverUnsupported = errors.New("storage: unsupported driver")
)

// EntryNotFoundError identifies the uid and id of a failed row lookup.
type EntryNotFoundError struct {
	UID string
	ID  int64
}

func (e *EntryNotFoundError) Error() string {
	if e == nil {
		return ErrEntryNotFound.Error()
	}
	return fmt.Sprintf("%s: %s id=%d", ErrEntryNotFound.Error(), e.UID, e.ID)
}

func (e *EntryNotFoundError) Unwrap() error {
	return ErrEntryNotFound
}
