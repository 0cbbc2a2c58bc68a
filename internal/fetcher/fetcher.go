// Package fetcher performs paced, single-request HTTP access to SEC EDGAR
// and decodes the JSON and XML documents it returns.
package fetcher

import "context"

// Fetcher defines the interface for downloading remote documents.
type Fetcher interface {
	// Fetch issues a GET for url, follows redirects, and returns the body.
	// Failures are reported with the sentinel errors in this package.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
