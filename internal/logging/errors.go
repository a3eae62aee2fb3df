package logging

import (
	"errors"
	"fmt"
)

// ErrorType returns the dynamic type name of the innermost wrapped error,
// for use as an error_type log field.
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}
