package legacy

import (
	"errors"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrUnauthenticated indicates the operation needs an identified caller.
	ErrUnauthenticated = eris.New("Unauthorized")
	// ErrUserNotFound indicates the caller has no internal user record.
	ErrUserNotFound = eris.New("User not found")
	// ErrPageNotFound indicates the referenced page does not exist.
	ErrPageNotFound = eris.New("Page not found")
	// ErrNotFoundOrUnauthorized hides whether an edited page is missing or owned by someone else.
	ErrNotFoundOrUnauthorized = eris.New("Legacy page not found or unauthorized")
	// ErrForbidden indicates the caller does not own the page.
	ErrForbidden = eris.New("Unauthorized to delete this page")
	// ErrPageAlreadyExists indicates the caller already owns a page.
	ErrPageAlreadyExists = eris.New("User already has a legacy page")
	// ErrSlugTaken indicates another page uses the slug.
	ErrSlugTaken = eris.New("This page URL is already taken")
)

// ValidationError reports submission fields that failed validation, keyed by
// their form field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.Fields[key])
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// AsValidationError extracts a ValidationError from the chain. Validation errors are
// returned unwrapped by the service.
func AsValidationError(err error) (*ValidationError, bool) {
	var target *ValidationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
