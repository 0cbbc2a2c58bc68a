package fetcher

import (
	"context"
	"errors"
	"net"

	"github.com/rotisserie/eris"
)

// Sentinel errors returned by Fetch. Test with errors.Is.
var (
	// ErrRateLimited is returned on HTTP 429.
	ErrRateLimited = eris.New("rate limited (http 429)")
	// ErrForbidden is returned on HTTP 403. EDGAR answers 403 when it has
	// blocked the caller's User-Agent, so callers stop the whole batch.
	ErrForbidden = eris.New("forbidden (http 403)")
	// ErrNotFound is returned on HTTP 404.
	ErrNotFound = eris.New("not found (http 404)")
	// ErrTimeout is returned when the request deadline elapses.
	ErrTimeout = eris.New("request timed out")
	// ErrHTTPStatus is returned for any other non-2xx status.
	ErrHTTPStatus = eris.New("unexpected http status")
	// ErrTooManyRedirects is returned when the redirect hop limit is hit.
	ErrTooManyRedirects = eris.New("too many redirects")
)

// IsFatal reports whether err must stop the remaining batch.
func IsFatal(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
