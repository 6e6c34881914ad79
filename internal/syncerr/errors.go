// Package syncerr defines the error taxonomy shared by the loader, the
// validator, the remote client and the reconcilers.
//
// Three kinds of failure are distinguished:
//
//   - ValidationError: the desired state violates an invariant. Always
//     raised before any remote call.
//   - NotFoundError: an entity expected to exist in the control plane does not.
//   - RemoteError: the control plane answered a request with a non-success
//     status or could not be reached.
//
// "Already exists" conflicts are RemoteErrors with status 422 and are
// resolved by the reconcilers, never surfaced to the operator.
package syncerr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports one violated invariant and every offending value.
type ValidationError struct {
	Rule   string
	Values []string
}

func (e *ValidationError) Error() string {
	if len(e.Values) == 0 {
		return e.Rule
	}
	return fmt.Sprintf("%s: %s", e.Rule, strings.Join(e.Values, ", "))
}

// ValidationErrors collects every violated invariant of one catalog.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	switch len(errs) {
	case 0:
		return "no validation errors"
	case 1:
		return errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(errs), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (errs ValidationErrors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// RemoteError is a failed control-plane request.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err contains a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err contains a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// StatusCode returns the HTTP status of a RemoteError in err's chain, or 0.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// IsConflict reports whether the control plane rejected a request as
// unprocessable, which it does for duplicates and for no-op promotions.
func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusUnprocessableEntity
}
