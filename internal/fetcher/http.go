package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	// UserAgent identifies the caller. SEC requires a contact string.
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	// Transport overrides the default round tripper (tests).
	Transport http.RoundTripper
}

// HTTPFetcher implements Fetcher using net/http. It performs exactly one
// logical request per call; retry and pacing belong to the caller.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
}

// Ensure HTTPFetcher implements Fetcher.
var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = 5
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "formd-cli/1.0"
	}
	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			// Redirects are followed by Fetch so every hop carries our headers
			// and counts against MaxRedirects.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		opts: opts,
	}
}

// Fetch issues a GET for rawURL and returns the body of the final response.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	current := rawURL
	for hop := 0; ; hop++ {
		body, next, err := f.get(ctx, current)
		if err != nil {
			return nil, err
		}
		if next == "" {
			return body, nil
		}
		if hop >= f.opts.MaxRedirects {
			return nil, eris.Wrapf(ErrTooManyRedirects, "fetch %s: stopped after %d hops", rawURL, hop)
		}
		zap.L().Debug("following redirect",
			zap.String("from", current),
			zap.String("to", next),
		)
		current = next
	}
}

// get performs one round trip. It returns the body on 2xx or the resolved
// redirect target on 3xx.
func (f *HTTPFetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/json, application/xml, text/plain, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, "", eris.Wrapf(ctx.Err(), "fetch %s", rawURL)
		}
		if isTimeout(err) {
			return nil, "", resilience.NewTransientError(eris.Wrapf(ErrTimeout, "fetch %s", rawURL), 0)
		}
		return nil, "", eris.Wrapf(err, "fetch %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	code := resp.StatusCode
	switch {
	case code >= 300 && code < 400:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return nil, "", eris.Wrapf(ErrHTTPStatus, "fetch %s: http %d without Location", rawURL, code)
		}
		next, err := req.URL.Parse(loc)
		if err != nil {
			return nil, "", eris.Wrapf(err, "fetch %s: bad Location %q", rawURL, loc)
		}
		return nil, next.String(), nil
	case resilience.RetryableStatus(code):
		sentinel := ErrRateLimited
		if code == http.StatusRequestTimeout {
			sentinel = ErrTimeout
		}
		return nil, "", resilience.NewTransientError(eris.Wrapf(sentinel, "fetch %s", rawURL), code)
	case code == http.StatusForbidden:
		return nil, "", eris.Wrapf(ErrForbidden, "fetch %s", rawURL)
	case code == http.StatusNotFound:
		return nil, "", eris.Wrapf(ErrNotFound, "fetch %s", rawURL)
	case code < 200 || code >= 300:
		return nil, "", eris.Wrapf(ErrHTTPStatus, "fetch %s: http %d", rawURL, code)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, "", resilience.NewTransientError(eris.Wrapf(ErrTimeout, "fetch %s: read body", rawURL), 0)
		}
		return nil, "", eris.Wrapf(err, "fetch %s: read body", rawURL)
	}
	return body, "", nil
}
