// Package search resolves directory companies to EDGAR issuers.
package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/formd-cli/internal/edgar"
	"github.com/sells-group/formd-cli/internal/fetcher"
	"github.com/sells-group/formd-cli/internal/model"
	"github.com/sells-group/formd-cli/internal/resilience"
	"github.com/sells-group/formd-cli/internal/resolve"
)

// Searcher runs one full-text query.
type Searcher interface {
	Search(ctx context.Context, name string) ([]edgar.Hit, error)
}

// Store is the persistence the orchestrator needs.
type Store interface {
	LoadMatches(ctx context.Context) (*model.MatchIndex, error)
	SaveMatches(ctx context.Context, idx *model.MatchIndex) error
	LoadResults(ctx context.Context) (*model.ResultIndex, error)
	SaveResults(ctx context.Context, idx *model.ResultIndex) error
	AppendFailures(ctx context.Context, entries ...model.Failure) error
}

// Config tunes a run.
type Config struct {
	BatchSize  int
	MaxFilings int
}

// Options scope a run.
type Options struct {
	// Only forces a fresh search of one slug. A new match replaces the
	// prior one; a failed or empty search leaves stored state untouched.
	Only string
	// Limit caps how many companies are searched; 0 means no cap.
	Limit int
}

// Summary reports what a run did.
type Summary struct {
	Considered int
	Searched   int
	Matched    int
	Unmatched  int
	Failed     int
	Skipped    int
	Aborted    bool
}

// Orchestrator runs the search phase.
type Orchestrator struct {
	searcher Searcher
	store    Store
	scorer   *resolve.Scorer
	cfg      Config
	now      func() time.Time
}

// New creates an Orchestrator.
func New(searcher Searcher, store Store, scorer *resolve.Scorer, cfg Config) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxFilings <= 0 {
		cfg.MaxFilings = 10
	}
	return &Orchestrator{
		searcher: searcher,
		store:    store,
		scorer:   scorer,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run searches every company that has neither a match nor an unmatched
// record. Progress is checkpointed every BatchSize companies. A Forbidden
// response checkpoints and aborts the run; any other per-company failure is
// recorded in the audit trail and the company stays eligible for next time.
func (o *Orchestrator) Run(ctx context.Context, companies []model.Company, opts Options) (Summary, error) {
	log := zap.L().With(zap.String("component", "search"))
	var sum Summary

	idx, err := o.store.LoadMatches(ctx)
	if err != nil {
		return sum, eris.Wrap(err, "search: load matches")
	}

	if opts.Only != "" {
		if model.IndexCompanies(companies).Lookup(companies, opts.Only) == nil {
			return sum, eris.Errorf("search: unknown company %q", opts.Only)
		}
	}

	checkpoint := func() error {
		idx.Refresh(o.now())
		if err := o.store.SaveMatches(ctx, idx); err != nil {
			return eris.Wrap(err, "search: checkpoint")
		}
		return nil
	}

	sinceCheckpoint := 0
	for _, company := range companies {
		if opts.Only != "" && company.Slug != opts.Only {
			continue
		}
		sum.Considered++
		if opts.Only == "" && idx.Done(company.Slug) {
			sum.Skipped++
			continue
		}
		if opts.Limit > 0 && sum.Searched+sum.Failed >= opts.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			if cpErr := checkpoint(); cpErr != nil {
				log.Error("checkpoint on cancel failed", zap.Error(cpErr))
			}
			return sum, eris.Wrap(err, "search: cancelled")
		}

		clog := log.With(zap.String("slug", company.Slug), zap.String("name", company.Name))
		match, err := o.searchOne(ctx, company)
		switch {
		case fetcher.IsFatal(err):
			sum.Aborted = true
			clog.Error("forbidden by EDGAR, aborting batch", zap.Error(err))
			if cpErr := checkpoint(); cpErr != nil {
				clog.Error("checkpoint on abort failed", zap.Error(cpErr))
			}
			return sum, eris.Wrapf(err, "search: aborted at %s", company.Slug)
		case err != nil:
			sum.Failed++
			clog.Warn("search failed", zap.String("operation", "search"), zap.Error(err))
			if aErr := o.store.AppendFailures(ctx, resilience.NewFailure(company.Slug, "search", err, o.now())); aErr != nil {
				clog.Error("record failure", zap.Error(aErr))
			}
		case match != nil:
			sum.Searched++
			sum.Matched++
			if idx.Record(company.Slug, *match) {
				clog.Info("issuer changed, dropping stale funding result", zap.String("cik", match.CIK))
				if err := o.dropResult(ctx, company.Slug); err != nil {
					return sum, err
				}
			}
			clog.Info("matched",
				zap.String("entity", match.EntityName),
				zap.String("cik", match.CIK),
				zap.String("confidence", string(match.Confidence)),
				zap.Int("filings", len(match.Filings)),
			)
		default:
			sum.Searched++
			sum.Unmatched++
			idx.MarkUnmatched(company.Slug)
			clog.Debug("no match")
		}

		sinceCheckpoint++
		if sinceCheckpoint >= o.cfg.BatchSize {
			if err := checkpoint(); err != nil {
				return sum, err
			}
			sinceCheckpoint = 0
		}
	}

	if err := checkpoint(); err != nil {
		return sum, err
	}
	log.Info("search complete",
		zap.Int("searched", sum.Searched),
		zap.Int("matched", sum.Matched),
		zap.Int("unmatched", sum.Unmatched),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

// dropResult removes the funding result recorded for an earlier issuer.
func (o *Orchestrator) dropResult(ctx context.Context, slug string) error {
	results, err := o.store.LoadResults(ctx)
	if err != nil {
		return eris.Wrap(err, "search: load results")
	}
	if _, ok := results.Companies[slug]; !ok {
		return nil
	}
	delete(results.Companies, slug)
	results.Refresh()
	return eris.Wrap(o.store.SaveResults(ctx, results), "search: drop stale result")
}

// searchOne returns the best issuer for company, or nil when none scores.
func (o *Orchestrator) searchOne(ctx context.Context, company model.Company) (*model.Match, error) {
	if strings.TrimSpace(company.Name) == "" {
		return nil, nil
	}
	hits, err := o.lookup(ctx, company.Name)
	if err != nil {
		return nil, err
	}

	var best *issuer
	bestConf := model.ConfidenceNone
	for _, g := range groupByIssuer(hits) {
		s := o.scorer.Score(company.Name, g.displayName())
		// Strictly greater: the first issuer seen at a tier keeps it.
		if s.IsMatch && s.Confidence.Rank() > bestConf.Rank() {
			best, bestConf = g, s.Confidence
		}
	}
	if best == nil {
		return nil, nil
	}

	return &model.Match{
		EntityName: best.displayName(),
		CIK:        best.cik,
		Confidence: bestConf,
		Filings:    best.recentFilings(o.cfg.MaxFilings),
		SearchedAt: o.now(),
	}, nil
}

// Queries returns the phrases searched for a company name: the name as
// given, plus its suffix-stripped form when that differs.
func Queries(n *resolve.Normalizer, name string) []string {
	raw := strings.TrimSpace(name)
	queries := []string{raw}
	if stripped := n.Normalize(raw); stripped != "" && stripped != strings.ToLower(raw) {
		queries = append(queries, stripped)
	}
	return queries
}

// lookup issues both queries for one company concurrently and merges the
// hits in query order, dropping repeats of the same issuer filing.
func (o *Orchestrator) lookup(ctx context.Context, name string) ([]edgar.Hit, error) {
	queries := Queries(o.scorer.Normalizer(), name)
	results := make([][]edgar.Hit, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			hits, err := o.searcher.Search(gctx, q)
			if err != nil {
				return err
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var merged []edgar.Hit
	for _, hits := range results {
		for _, h := range hits {
			key := h.AccessionNumber + "|" + h.CIK
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, h)
		}
	}
	return merged, nil
}

// issuer collects the hits of one CIK.
type issuer struct {
	cik        string
	nameCounts map[string]int
	nameOrder  []string
	filings    []model.Filing
}

func (g *issuer) add(h edgar.Hit) {
	if h.DisplayName != "" {
		if g.nameCounts[h.DisplayName] == 0 {
			g.nameOrder = append(g.nameOrder, h.DisplayName)
		}
		g.nameCounts[h.DisplayName]++
	}
	g.filings = append(g.filings, model.Filing{
		AccessionNumber: h.AccessionNumber,
		FilingDate:      h.FilingDate,
		FormType:        h.FormType,
	})
}

// displayName is the most frequent spelling; ties go to the first seen.
func (g *issuer) displayName() string {
	best, bestN := "", 0
	for _, name := range g.nameOrder {
		if n := g.nameCounts[name]; n > bestN {
			best, bestN = name, n
		}
	}
	return best
}

// recentFilings returns up to limit filings, newest first.
func (g *issuer) recentFilings(limit int) []model.Filing {
	out := make([]model.Filing, len(g.filings))
	copy(out, g.filings)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FilingDate > out[j].FilingDate
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// groupByIssuer groups hits by CIK in first-seen order.
func groupByIssuer(hits []edgar.Hit) []*issuer {
	var order []*issuer
	byCIK := make(map[string]*issuer)
	for _, h := range hits {
		if h.CIK == "" {
			continue
		}
		g, ok := byCIK[h.CIK]
		if !ok {
			g = &issuer{cik: h.CIK, nameCounts: map[string]int{}}
			byCIK[h.CIK] = g
			order = append(order, g)
		}
		g.add(h)
	}
	return order
}
