package i18n

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDefaultLocale signals that neither configuration nor storage
	// defines a default locale.
	ErrNoDefaultLocale = errors.New("i18n: no default locale configured")

	// ErrLocaleNotFound is the sentinel wrapped by NotFoundError.
	ErrLocaleNotFound = errors.New("i18n: locale not found")
)

// NotFoundError reports a missing locale record.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("i18n: locale %q not found", e.Code)
}

func (e *NotFoundError) Unwrap() error {
	return ErrLocaleNotFound
}
