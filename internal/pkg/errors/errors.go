package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
	ErrConflict = errors.New("conflict")

	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrDocumentNotFound   = fmt.Errorf("document %w", ErrNotFound)
	ErrSectionNotFound    = fmt.Errorf("section %w", ErrNotFound)
	ErrInvalidInput       = fmt.Errorf("input %w", ErrInvalid)
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}
