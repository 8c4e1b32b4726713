package fetch

import (
	"errors"
	"fmt"
)

// StatusError is returned for a catalog response whose status is not 200.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// IsStatus reports whether err carries a non-200 catalog response status.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
