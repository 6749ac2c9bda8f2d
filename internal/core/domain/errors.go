package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProcedureNotFound = errors.New("procedure not found")
	ErrFeedbackNotFound  = errors.New("feedback not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTemporary         = errors.New("temporary failure")
	ErrUpstream          = errors.New("upstream failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
