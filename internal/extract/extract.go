// Package extract fetches the most recent Form D of each match and records
// the disclosed funding.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/edgar"
	"github.com/sells-group/formd-cli/internal/model"
	"github.com/sells-group/formd-cli/internal/resilience"
	"github.com/sells-group/formd-cli/internal/resolve"
)

// DocumentFetcher retrieves a parsed Form D.
type DocumentFetcher interface {
	FetchFormD(ctx context.Context, cik, accession string) (*edgar.Document, error)
}

// Store is the persistence the extractor needs.
type Store interface {
	LoadMatches(ctx context.Context) (*model.MatchIndex, error)
	LoadResults(ctx context.Context) (*model.ResultIndex, error)
	SaveResults(ctx context.Context, idx *model.ResultIndex) error
	AppendFailures(ctx context.Context, entries ...model.Failure) error
}

// Options scope a run.
type Options struct {
	// Only re-fetches one slug even if it already has a result.
	Only string
	// Limit caps how many filings are fetched; 0 means no cap.
	Limit int
}

// Summary reports what a run did.
type Summary struct {
	Considered  int
	Fetched     int
	WithFunding int
	Failed      int
	Skipped     int
	Aborted     bool
}

// Extractor runs the fetch phase.
type Extractor struct {
	fetcher   DocumentFetcher
	store     Store
	scorer    *resolve.Scorer
	batchSize int
	now       func() time.Time
}

// New creates an Extractor.
func New(f DocumentFetcher, store Store, scorer *resolve.Scorer, batchSize int) *Extractor {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Extractor{
		fetcher:   f,
		store:     store,
		scorer:    scorer,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run fetches the latest filing of every match that has filings, is not
// rejected and has no result yet. Documents that cannot be fetched leave no
// result so the company is retried next run.
func (e *Extractor) Run(ctx context.Context, companies []model.Company, opts Options) (Summary, error) {
	log := zap.L().With(zap.String("component", "extract"))
	var sum Summary

	matches, err := e.store.LoadMatches(ctx)
	if err != nil {
		return sum, eris.Wrap(err, "extract: load matches")
	}
	results, err := e.store.LoadResults(ctx)
	if err != nil {
		return sum, eris.Wrap(err, "extract: load results")
	}
	if opts.Only != "" {
		if _, ok := matches.Matches[opts.Only]; !ok {
			return sum, eris.Errorf("extract: no match for %q", opts.Only)
		}
	}

	names := make(map[string]string, len(companies))
	for _, c := range companies {
		names[c.Slug] = c.Name
	}

	checkpoint := func() error {
		results.Refresh()
		return eris.Wrap(e.store.SaveResults(ctx, results), "extract: checkpoint")
	}

	slugs := make([]string, 0, len(matches.Matches))
	for slug := range matches.Matches {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	sinceCheckpoint := 0
	for _, slug := range slugs {
		if opts.Only != "" && slug != opts.Only {
			continue
		}
		m := matches.Matches[slug]
		sum.Considered++

		latest, ok := m.Latest()
		_, hasResult := results.Companies[slug]
		if !ok || m.Status == model.StatusRejected || (hasResult && opts.Only == "") {
			sum.Skipped++
			continue
		}
		if opts.Limit > 0 && sum.Fetched+sum.Failed >= opts.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			sum.Aborted = true
			if cpErr := checkpoint(); cpErr != nil {
				log.Error("checkpoint on cancel failed", zap.Error(cpErr))
			}
			return sum, eris.Wrap(err, "extract: cancelled")
		}

		name := names[slug]
		if name == "" {
			name = m.EntityName
		}
		clog := log.With(zap.String("slug", slug), zap.String("accession", latest.AccessionNumber))

		res, err := e.extractOne(ctx, name, m, latest)
		if err != nil {
			sum.Failed++
			clog.Warn("fetch failed", zap.String("operation", "fetch"), zap.Error(err))
			if aErr := e.store.AppendFailures(ctx, resilience.NewFailure(slug, "fetch", err, e.now())); aErr != nil {
				clog.Error("record failure", zap.Error(aErr))
			}
		} else {
			sum.Fetched++
			if res.FundingFound != nil {
				sum.WithFunding++
			}
			results.Companies[slug] = *res
			clog.Info("fetched",
				zap.Any("funding", res.FundingFound),
				zap.String("confidence", string(res.Confidence)),
				zap.String("note", res.Note),
			)
		}

		sinceCheckpoint++
		if sinceCheckpoint >= e.batchSize {
			if err := checkpoint(); err != nil {
				return sum, err
			}
			sinceCheckpoint = 0
		}
	}

	if err := checkpoint(); err != nil {
		return sum, err
	}
	log.Info("fetch complete",
		zap.Int("fetched", sum.Fetched),
		zap.Int("with_funding", sum.WithFunding),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

// extractOne builds the result for one filing. A parse failure still yields
// a result; an unreachable document yields an error.
func (e *Extractor) extractOne(ctx context.Context, companyName string, m model.Match, f model.Filing) (*model.FundingResult, error) {
	res := &model.FundingResult{
		Source:          model.SourceFormD,
		Confidence:      m.Confidence,
		AccessionNumber: f.AccessionNumber,
		FilingDate:      f.FilingDate,
		FetchedAt:       e.now(),
	}

	doc, err := e.fetcher.FetchFormD(ctx, m.CIK, f.AccessionNumber)
	if err != nil {
		if errors.Is(err, edgar.ErrParse) && doc != nil {
			res.DocumentURL = doc.URL
			res.Note = "filing could not be parsed: " + err.Error()
			return res, nil
		}
		return nil, err
	}

	ext := doc.Extraction
	res.DocumentURL = doc.URL
	res.FormD = &ext
	res.FundingFound = ext.TotalAmountSold

	switch {
	case !ext.HasAmounts():
		res.Note = "filing contains no offering amounts"
	case ext.TotalAmountSold == nil:
		res.Note = "total amount sold not disclosed"
	}

	if ext.IssuerName != "" {
		s := e.scorer.Score(companyName, ext.IssuerName)
		if down := res.Confidence.Min(s.Confidence); down != res.Confidence {
			res.Confidence = down
			res.Note = joinNote(res.Note, fmt.Sprintf("issuer %q only scores %s against %q", ext.IssuerName, s.Confidence, companyName))
		}
	}
	return res, nil
}

func joinNote(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
