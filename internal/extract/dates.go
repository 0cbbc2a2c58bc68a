package extract

import (
	"sort"

	"github.com/sells-group/formd-cli/internal/model"
)

// DateChange sets a company's funding month from its latest Form D.
type DateChange struct {
	Slug      string
	Month     string
	Accession string
}

// PlanDates lists companies that have no funding date, a match that is not
// rejected or pending review, and a fetched funding figure. Changes are
// sorted by slug.
func PlanDates(companies []model.Company, matches *model.MatchIndex, results *model.ResultIndex) []DateChange {
	var changes []DateChange
	for _, c := range companies {
		if c.FundingDate != "" {
			continue
		}
		m, ok := matches.Matches[c.Slug]
		if !ok || m.Status == model.StatusRejected || m.Status == model.StatusNeedsReview {
			continue
		}
		res, ok := results.Companies[c.Slug]
		if !ok || res.FundingFound == nil {
			continue
		}
		latest, ok := m.Latest()
		if !ok || latest.Month() == "" {
			continue
		}
		changes = append(changes, DateChange{Slug: c.Slug, Month: latest.Month(), Accession: latest.AccessionNumber})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Slug < changes[j].Slug })
	return changes
}

// ApplyDates writes changes into companies and returns how many were set.
func ApplyDates(companies []model.Company, changes []DateChange) int {
	idx := model.IndexCompanies(companies)
	n := 0
	for _, ch := range changes {
		if c := idx.Lookup(companies, ch.Slug); c != nil && c.FundingDate == "" {
			c.FundingDate = ch.Month
			n++
		}
	}
	return n
}
