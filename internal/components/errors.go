package components

import (
	"errors"
	"fmt"
)

var (
	ErrNotRelated       = errors.New("components: component not related to the entity")
	ErrInstanceNotFound = errors.New("components: component instance not found")
	ErrValueMalformed   = errors.New("components: malformed component value")
	ErrComponentUnknown = errors.New("components: unknown component type")
)

// NotRelatedError reports an update keeping an instance id that was never
// linked to the entry being updated.
type NotRelatedError struct {
	UID     string
	EntryID int64
	ID      int64
	Field   string
}

func (e *NotRelatedError) Error() string {
	if e == nil {
		return ErrNotRelated.Error()
	}
	return fmt.Sprintf("%s: %s.%s instance %d on entry %d", ErrNotRelated.Error(), e.UID, e.Field, e.ID, e.EntryID)
}

func (e *NotRelatedError) Unwrap() error {
	return ErrNotRelated
}
