package legacy

import (
	"errors"
	"fmt"
)

// ParseError reports a catalog payload that does not have the expected shape.
//
// Index is the position of the offending element in its list, or -1 when the
// problem is not tied to a list element. Field is empty when the element
// as a whole is wrong: not an object, or an entity that fails validation.
type ParseError struct {
	Catalog string
	Field   string
	Index   int
	Err     error
}

func (e *ParseError) Error() string {
	msg := "parse " + e.Catalog
	if e.Index >= 0 {
		msg += fmt.Sprintf(": element %d", e.Index)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	return msg + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	// ErrMissingField means a required field is absent or null.
	ErrMissingField = errors.New("missing required field")

	// ErrWrongType means a field holds a JSON value of the wrong type.
	ErrWrongType = errors.New("wrong type")

	// ErrInvalidValue means a field has the right type but an unusable value.
	ErrInvalidValue = errors.New("invalid value")
)

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
