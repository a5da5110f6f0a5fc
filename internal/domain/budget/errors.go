package budget

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a budget or item does not exist.
var ErrNotFound = errors.New("budget not found")

// ValidationError marks a request the caller can fix.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
