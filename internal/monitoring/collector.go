// Package monitoring aggregates read-only pipeline status from the stores.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/model"
)

// MetricsSnapshot holds a point-in-time view of pipeline progress.
type MetricsSnapshot struct {
	// Directory.
	Companies       int `json:"companies"`
	WithFunding     int `json:"with_funding"`
	WithFundingDate int `json:"with_funding_date"`

	// Search.
	Searched     int                      `json:"searched"`
	Matched      int                      `json:"matched"`
	Unmatched    int                      `json:"unmatched"`
	NotSearched  int                      `json:"not_searched"`
	ByConfidence map[model.Confidence]int `json:"by_confidence"`
	ByStatus     map[string]int           `json:"by_status"`
	LastSearch   *time.Time               `json:"last_search,omitempty"`

	// Extraction.
	Results           int `json:"results"`
	ResultsWithAmount int `json:"results_with_amount"`
	PendingFetch      int `json:"pending_fetch"`

	// Review queue.
	Review          model.ReviewSummary `json:"review"`
	ReviewGenerated *time.Time          `json:"review_generated,omitempty"`

	// Failure audit trail (within lookback window).
	Failures            int            `json:"failures"`
	TransientFailures   int            `json:"transient_failures"`
	FailuresByOperation map[string]int `json:"failures_by_operation"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Reader is the read side of the document store the collector needs.
type Reader interface {
	LoadCompanies(ctx context.Context) ([]model.Company, error)
	LoadMatches(ctx context.Context) (*model.MatchIndex, error)
	LoadResults(ctx context.Context) (*model.ResultIndex, error)
	LoadReview(ctx context.Context) (*model.ReviewQueue, error)
	LoadFailures(ctx context.Context) ([]model.Failure, error)
}

// Collector gathers status counts from the document store. It never writes.
type Collector struct {
	store Reader
	now   func() time.Time
}

// NewCollector creates a new status collector.
func NewCollector(r Reader) *Collector {
	return &Collector{store: r, now: time.Now}
}

// Collect gathers a snapshot. Failures older than lookbackHours are not
// counted; zero counts every failure.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		ByConfidence:        map[model.Confidence]int{},
		ByStatus:            map[string]int{},
		FailuresByOperation: map[string]int{},
		LookbackHours:       lookbackHours,
		CollectedAt:         now,
	}

	companies, err := c.store.LoadCompanies(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: load companies")
	}
	matches, err := c.store.LoadMatches(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: load matches")
	}
	results, err := c.store.LoadResults(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: load results")
	}

	snap.Companies = len(companies)
	for _, co := range companies {
		if co.Funding != nil {
			snap.WithFunding++
		}
		if co.FundingDate != "" {
			snap.WithFundingDate++
		}
		if !matches.Done(co.Slug) {
			snap.NotSearched++
		}
	}

	snap.Matched = len(matches.Matches)
	snap.Unmatched = len(matches.Unmatched)
	snap.Searched = snap.Matched + snap.Unmatched
	snap.LastSearch = matches.Metadata.LastRun
	for slug, m := range matches.Matches {
		snap.ByConfidence[m.Confidence]++
		snap.ByStatus[m.Status.String()]++
		if _, done := results.Companies[slug]; !done && len(m.Filings) > 0 && m.Status != model.StatusRejected {
			snap.PendingFetch++
		}
	}

	snap.Results = len(results.Companies)
	for _, r := range results.Companies {
		if r.FundingFound != nil {
			snap.ResultsWithAmount++
		}
	}

	review, err := c.store.LoadReview(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: load review queue")
	}
	if review != nil {
		snap.Review = review.Summary
		generated := review.Generated
		snap.ReviewGenerated = &generated
	}

	failures, err := c.store.LoadFailures(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: load failures")
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	for _, f := range failures {
		if lookbackHours > 0 && f.CreatedAt.Before(cutoff) {
			continue
		}
		snap.Failures++
		snap.FailuresByOperation[f.Operation]++
		if f.ErrorType == "transient" {
			snap.TransientFailures++
		}
	}

	return snap, nil
}
