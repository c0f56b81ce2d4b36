package relations

import (
	"errors"
	"fmt"
)

var (
	ErrLocaleMismatch      = errors.New("relations: relation locale does not match the source locale")
	ErrDocumentNotFound    = errors.New("relations: related document not found")
	ErrPositionUnresolved  = errors.New("relations: positional before/after reference cannot be resolved")
	ErrReferenceMalformed  = errors.New("relations: malformed relation reference")
	ErrMapNotLoaded        = errors.New("relations: id map queried before load")
	ErrTargetModelRequired = errors.New("relations: relation attribute has no target model")
)

// DocumentNotFoundError carries the unresolvable reference details.
type DocumentNotFoundError struct {
	UID        string
	DocumentID string
	Locale     string
}

func (e *DocumentNotFoundError) Error() string {
	if e == nil {
		return ErrDocumentNotFound.Error()
	}
	if e.Locale != "" {
		return fmt.Sprintf("%s: %s %s (%s)", ErrDocumentNotFound.Error(), e.UID, e.DocumentID, e.Locale)
	}
	return fmt.Sprintf("%s: %s %s", ErrDocumentNotFound.Error(), e.UID, e.DocumentID)
}

func (e *DocumentNotFoundError) Unwrap() error {
	return ErrDocumentNotFound
}

// LocaleMismatchError reports a localized relation pointing across locales.
type LocaleMismatchError struct {
	SourceLocale string
	TargetLocale string
}

func (e *LocaleMismatchError) Error() string {
	if e == nil {
		return ErrLocaleMismatch.Error()
	}
	return fmt.Sprintf("%s: source=%s target=%s", ErrLocaleMismatch.Error(), e.SourceLocale, e.TargetLocale)
}

func (e *LocaleMismatchError) Unwrap() error {
	return ErrLocaleMismatch
}
