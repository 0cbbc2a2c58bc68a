// Package edgar talks to the SEC EDGAR full-text search index and the filing
// archives. Every request goes through one shared pacer and a bounded
// fixed-backoff retry.
package edgar

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/fetcher"
	"github.com/sells-group/formd-cli/internal/resilience"
)

const (
	// DefaultSearchURL is the EDGAR full-text search endpoint.
	DefaultSearchURL = "https://efts.sec.gov/LATEST/search-index"
	// DefaultArchivesURL is the root of per-issuer filing folders.
	DefaultArchivesURL = "https://www.sec.gov/Archives/edgar/data"
)

var (
	// ErrUnavailable means every candidate document URL was missing or refused.
	ErrUnavailable = eris.New("edgar: filing document unavailable")
	// ErrParse means a document was fetched but could not be decoded.
	ErrParse = eris.New("edgar: filing document unparseable")
)

// Options configures a Client.
type Options struct {
	SearchURL   string
	ArchivesURL string
	Retry       resilience.RetryConfig
}

// Client issues paced, retried requests against EDGAR.
type Client struct {
	fetcher fetcher.Fetcher
	pacer   *fetcher.Pacer
	opts    Options
}

// NewClient creates a Client. The pacer must be shared with every other
// caller hitting the same upstream.
func NewClient(f fetcher.Fetcher, pacer *fetcher.Pacer, opts Options) *Client {
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	if opts.ArchivesURL == "" {
		opts.ArchivesURL = DefaultArchivesURL
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.FixedRetryConfig(3, 5*time.Second)
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("edgar", "get")
	}
	if pacer == nil {
		pacer = fetcher.NewPacer(fetcher.DefaultMinInterval)
	}
	return &Client{fetcher: f, pacer: pacer, opts: opts}
}

// get fetches url, waiting on the pacer before every attempt. Throttling and
// timeouts are retried with a fixed backoff; when attempts run out the last
// error (still matching fetcher.ErrRateLimited or ErrTimeout) is returned.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	return resilience.DoVal(ctx, c.opts.Retry, func(ctx context.Context) ([]byte, error) {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "edgar: pacer wait")
		}
		return c.fetcher.Fetch(ctx, url)
	})
}
