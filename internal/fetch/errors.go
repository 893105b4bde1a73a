package fetch

import (
	"fmt"

	crerr "github.com/cockroachdb/errors"
)

// ErrTransient marks failures worth retrying: timeouts, render-wait
// timeouts, connection errors and HTTP error statuses.
var ErrTransient = crerr.New("transient fetch error")

// Failure is returned when every strategy failed for a target. Callers
// treat it as "no data this cycle".
type Failure struct {
	URL      string
	Attempts int
	Primary  error
	Fallback error
}

func (f *Failure) Error() string {
	switch {
	case f.Primary != nil && f.Fallback != nil:
		return fmt.Sprintf("fetch %s failed after %d attempts: primary: %v; fallback: %v", f.URL, f.Attempts, f.Primary, f.Fallback)
	case f.Fallback != nil:
		return fmt.Sprintf("fetch %s failed after %d attempts: %v", f.URL, f.Attempts, f.Fallback)
	default:
		return fmt.Sprintf("fetch %s failed after %d attempts: %v", f.URL, f.Attempts, f.Primary)
	}
}

func (f *Failure) Unwrap() []error {
	var errs []error
	if f.Primary != nil {
		errs = append(errs, f.Primary)
	}
	if f.Fallback != nil {
		errs = append(errs, f.Fallback)
	}
	return errs
}

func transient(err error, format string, args ...any) error {
	return crerr.Mark(crerr.Wrapf(err, format, args...), ErrTransient)
}

// IsTransient reports whether err carries the transient mark.
func IsTransient(err error) bool {
	var failure *Failure
	if crerr.As(err, &failure) {
		return IsTransient(failure.Primary) || IsTransient(failure.Fallback)
	}
	return crerr.Is(err, ErrTransient)
}
