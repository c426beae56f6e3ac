package visibility

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports invalid observer, date or window settings.
	// Fatal: raised before any sampling starts.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnknownObject reports a target name that could not be resolved.
	ErrUnknownObject = errors.New("unknown object")

	// ErrTransform reports that horizontal coordinates could not be produced.
	ErrTransform = errors.New("coordinate transform failed")

	// ErrElevationUnavailable reports a failed observer elevation lookup. Fatal.
	ErrElevationUnavailable = errors.New("observer elevation unavailable")

	// ErrFinalized reports a merge into an aggregator that was already finalized.
	ErrFinalized = errors.New("aggregator already finalized")

	// ErrAlreadyNarrowed reports a second attempt to resize the scan window.
	ErrAlreadyNarrowed = errors.New("sampling window already narrowed")
)

// ObjectError carries the failing object's id alongside the error kind
// (ErrUnknownObject or ErrTransform) and the underlying cause.
type ObjectError struct {
	Object string
	Kind   error
	Err    error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Object, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ObjectError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
