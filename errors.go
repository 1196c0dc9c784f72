package recordsvc

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a lookup or update against an id the store does not
// hold. The HTTP layer maps it to 404.
var ErrNotFound = errors.New("record not found")

// ValidationError reports a missing required field on create. The HTTP
// layer maps it to 400.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}
