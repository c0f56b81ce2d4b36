package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrModelRequired     = errors.New("schema: model definition is required")
	ErrModelUIDRequired  = errors.New("schema: model uid is required")
	ErrModelDuplicate    = errors.New("schema: duplicate model uid")
	ErrModelNotFound     = errors.New("schema: model not found")
	ErrAttributeInvalid  = errors.New("schema: attribute definition is invalid")
	ErrComponentCycle    = errors.New("schema: component graph contains a cycle")
	ErrDefinitionInvalid = errors.New("schema: definition document is invalid")
)

// ModelNotFoundError identifies the missing UID for registry lookups.
type ModelNotFoundError struct {
	UID string
}

func (e *ModelNotFoundError) Error() string {
	if e == nil || e.UID == "" {
		return ErrModelNotFound.Error()
	}
	return fmt.Sprintf("%s: %s", ErrModelNotFound.Error(), e.UID)
}

func (e *ModelNotFoundError) Unwrap() error {
	return ErrModelNotFound
}

// ComponentCycleError reports the traversal path that closed the cycle.
type ComponentCycleError struct {
	Path []string
}

func (e *ComponentCycleError) Error() string {
	if e == nil || len(e.Path) == 0 {
		return ErrComponentCycle.Error()
	}
	return fmt.Sprintf("%s: %s", ErrComponentCycle.Error(), strings.Join(e.Path, " -> "))
}

func (e *ComponentCycleError) Unwrap() error {
	return ErrComponentCycle
}
