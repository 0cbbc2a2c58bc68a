package model

import "strings"

// Company is one entry of the company directory. The directory is owned by
// another system; this module only writes back FundingDate.
type Company struct {
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Country string   `json:"country,omitempty"`
	Segment string   `json:"segment,omitempty"`
	Funding *float64 `json:"funding,omitempty"`

	// FundingDate is the derived month (YYYY-MM) of the filing that supplied
	// the funding figure. Empty means not set.
	FundingDate string `json:"funding_date,omitempty"`
}

// CompanyIndex maps slug to position for the ordered directory.
type CompanyIndex map[string]int

// IndexCompanies builds a slug index over companies. Later duplicates win.
func IndexCompanies(companies []Company) CompanyIndex {
	idx := make(CompanyIndex, len(companies))
	for i, c := range companies {
		idx[c.Slug] = i
	}
	return idx
}

// Lookup returns a pointer into companies for slug, or nil.
func (idx CompanyIndex) Lookup(companies []Company, slug string) *Company {
	i, ok := idx[slug]
	if !ok || i >= len(companies) {
		return nil
	}
	return &companies[i]
}

// Slugify derives a directory slug from a company name.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
