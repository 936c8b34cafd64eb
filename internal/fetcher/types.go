package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Page is the result of one successful HTTP attempt.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// PageFetcher performs a single GET attempt.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d (%s) for %s", e.Code, http.StatusText(e.Code), e.URL)
}

// permanentStatuses never change on retry.
var permanentStatuses = map[int]struct{}{
	http.StatusBadRequest:                 {},
	http.StatusUnauthorized:               {},
	http.StatusForbidden:                  {},
	http.StatusNotFound:                   {},
	http.StatusMethodNotAllowed:           {},
	http.StatusGone:                       {},
	http.StatusUnavailableForLegalReasons: {},
}

// IsPermanent reports whether err carries a status that will not recover.
func IsPermanent(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	_, ok := permanentStatuses[se.Code]
	return ok
}
