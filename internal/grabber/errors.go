package grabber

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyPayload is returned when a fetch produced no bytes.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrInvalidMode signals a mode string outside the supported set.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrUnsupportedMode signals a recognised mode this build does not run.
	ErrUnsupportedMode = errors.New("unsupported mode")
	// ErrInvalidURL marks a URL that can never be requested. It is not retried.
	ErrInvalidURL = errors.New("invalid url")
	// ErrUnnamedLink is returned when no file name can be derived for a link.
	ErrUnnamedLink = errors.New("cannot derive file name")
)

// StatusError reports a completed HTTP exchange with a non-2xx status.
// Status errors are terminal and never retried.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d (%s) for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// IsSuccessStatus reports whether code is in the 2xx range.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}
