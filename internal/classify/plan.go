package classify

import (
	"bytes"
	"context"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/model"
	"github.com/sells-group/formd-cli/internal/store"
)

// Input is the state a plan is computed from. Plan never modifies it.
type Input struct {
	Companies []model.Company
	Matches   *model.MatchIndex
	Results   *model.ResultIndex
	// Review is the stored queue, if any. Its timestamp is kept when the
	// regenerated queue has the same content.
	Review *model.ReviewQueue
}

// Decision is the verdict for one match.
type Decision struct {
	Slug    string
	Entity  string
	CIK     string
	Verdict Verdict
}

// DateRevert removes a funding month that came from an invalidated match.
type DateRevert struct {
	Slug  string
	Month string
}

// StatusChange records a match status transition.
type StatusChange struct {
	Slug string
	From model.ValidationStatus
	To   model.ValidationStatus
}

// Plan is the full outcome of a classification pass: the report and the
// documents to write if it is applied.
type Plan struct {
	Decisions     []Decision
	Reverts       []DateRevert
	StatusChanges []StatusChange
	Deletions     []string
	Review        model.ReviewQueue

	Companies []model.Company
	Matches   *model.MatchIndex
	Results   *model.ResultIndex
}

// Counts tallies decisions per category.
func (p *Plan) Counts() map[Category]int {
	out := make(map[Category]int, len(Categories))
	for _, d := range p.Decisions {
		out[d.Verdict.Category]++
	}
	return out
}

// Empty reports whether applying the plan would change nothing but the
// review queue.
func (p *Plan) Empty() bool {
	return len(p.Reverts) == 0 && len(p.StatusChanges) == 0 && len(p.Deletions) == 0
}

// Plan classifies every match and computes, in order: funding-date reverts,
// status changes, result deletions and the regenerated review queue. now
// stamps the queue unless its content matches in.Review.
func (e *Engine) Plan(in Input, now time.Time) *Plan {
	companies := make([]model.Company, len(in.Companies))
	copy(companies, in.Companies)
	cidx := model.IndexCompanies(companies)

	matches := &model.MatchIndex{
		Metadata:  in.Matches.Metadata,
		Matches:   make(map[string]model.Match, len(in.Matches.Matches)),
		Unmatched: append([]string{}, in.Matches.Unmatched...),
	}
	results := &model.ResultIndex{
		Metadata:  in.Results.Metadata,
		Companies: make(map[string]model.FundingResult, len(in.Results.Companies)),
	}
	for slug, r := range in.Results.Companies {
		results.Companies[slug] = r
	}

	p := &Plan{Companies: companies, Matches: matches, Results: results}

	for _, slug := range sortedSlugs(in.Matches.Matches) {
		m := in.Matches.Matches[slug]
		company := cidx.Lookup(companies, slug)
		v := e.Classify(slug, m, company)
		p.Decisions = append(p.Decisions, Decision{Slug: slug, Entity: m.EntityName, CIK: m.CIK, Verdict: v})

		// (a) revert only a month that came from this match's latest filing.
		if v.Category.Invalidates() && company != nil && company.FundingDate != "" {
			if latest, ok := m.Latest(); ok && company.FundingDate == latest.Month() {
				p.Reverts = append(p.Reverts, DateRevert{Slug: slug, Month: company.FundingDate})
				company.FundingDate = ""
			}
		}

		// (b) status
		to := v.Category.Status()
		if m.Status != to {
			p.StatusChanges = append(p.StatusChanges, StatusChange{Slug: slug, From: m.Status, To: to})
		}
		m.Status = to
		m.ValidationReason = v.Reason
		matches.Matches[slug] = m

		// (c) results of rejected matches
		if v.Category.Invalidates() {
			if _, ok := results.Companies[slug]; ok {
				p.Deletions = append(p.Deletions, slug)
				delete(results.Companies, slug)
			}
		}
	}
	results.Refresh()

	// (d)
	p.Review = e.buildReview(companies, cidx, matches, results, now)
	if in.Review != nil && sameQueue(*in.Review, p.Review) {
		p.Review.Generated = in.Review.Generated
	}
	return p
}

// sameQueue compares two queues ignoring their timestamps.
func sameQueue(a, b model.ReviewQueue) bool {
	a.Generated, b.Generated = time.Time{}, time.Time{}
	ea, err := store.Encode(a)
	if err != nil {
		return false
	}
	eb, err := store.Encode(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

// buildReview compares every remaining result with the directory's current
// funding figure. Entries are sorted by slug.
func (e *Engine) buildReview(companies []model.Company, cidx model.CompanyIndex, matches *model.MatchIndex, results *model.ResultIndex, now time.Time) model.ReviewQueue {
	q := model.ReviewQueue{Generated: now.UTC(), Companies: []model.ReviewEntry{}}

	slugs := make([]string, 0, len(results.Companies))
	for slug := range results.Companies {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		res := results.Companies[slug]
		entry := model.ReviewEntry{
			Slug:       slug,
			Name:       slug,
			NewFunding: res.FundingFound,
			Source:     res.Source,
			Confidence: res.Confidence,
			Note:       res.Note,
		}
		if c := cidx.Lookup(companies, slug); c != nil {
			entry.Name = c.Name
			entry.CurrentFunding = c.Funding
		} else if m, ok := matches.Matches[slug]; ok {
			entry.Name = m.EntityName
		}
		entry.Action = e.reviewAction(entry.CurrentFunding, entry.NewFunding)
		if entry.Action == model.ActionKeep {
			approved := true
			entry.Approved = &approved
		}

		q.Companies = append(q.Companies, entry)
		q.Summary.Total++
		switch entry.Action {
		case model.ActionKeep:
			q.Summary.Keep++
		case model.ActionSkip:
			q.Summary.Skip++
		case model.ActionAdd:
			q.Summary.Add++
		case model.ActionUpdate:
			q.Summary.Update++
		}
	}
	return q
}

// reviewAction picks the suggested action for a current/new funding pair.
func (e *Engine) reviewAction(current, found *float64) model.ReviewAction {
	switch {
	case found == nil && current == nil:
		return model.ActionSkip
	case found == nil:
		return model.ActionKeep
	case current == nil:
		return model.ActionAdd
	case *current == 0:
		if *found != 0 {
			return model.ActionUpdate
		}
		return model.ActionKeep
	case math.Abs(*found-*current)/math.Abs(*current) > e.reviewThreshold:
		return model.ActionUpdate
	default:
		return model.ActionKeep
	}
}

// SnapshotWriter persists a set of documents in one step.
type SnapshotWriter interface {
	SaveSnapshot(ctx context.Context, s store.Snapshot) error
}

// Commit writes every document the plan touches in one snapshot.
func Commit(ctx context.Context, w SnapshotWriter, p *Plan) error {
	review := p.Review
	err := w.SaveSnapshot(ctx, store.Snapshot{
		Companies: p.Companies,
		Matches:   p.Matches,
		Results:   p.Results,
		Review:    &review,
	})
	return eris.Wrap(err, "classify: commit")
}

func sortedSlugs(m map[string]model.Match) []string {
	out := make([]string, 0, len(m))
	for slug := range m {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
