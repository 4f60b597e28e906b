package version

import (
	"errors"
	"fmt"
)

var (
	errNotRange  = errors.New("not a version range")
	errNoMinimum = errors.New("no version satisfies the range")
)

// InvalidVersionError is returned when a specifier has to be compared as a
// range but cannot be parsed as one.
type InvalidVersionError struct {
	Specifier string
	Err       error
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Specifier, e.Err)
}

func (e *InvalidVersionError) Unwrap() error {
	return e.Err
}
