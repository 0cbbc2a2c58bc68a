// Package directory imports the company directory from spreadsheet and
// JSON exports and writes the review queue back out for people to edit.
package directory

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/fetcher"
	"github.com/sells-group/formd-cli/internal/model"
)

// ErrUnsupportedFormat is returned for file extensions Import and
// ExportReview do not handle.
var ErrUnsupportedFormat = eris.New("unsupported file format")

// columnAliases maps accepted header spellings onto Company fields.
var columnAliases = map[string]string{
	"slug":          "slug",
	"name":          "name",
	"company":       "name",
	"company_name":  "name",
	"country":       "country",
	"segment":       "segment",
	"category":      "segment",
	"funding":       "funding",
	"total_funding": "funding",
	"funding_date":  "funding_date",
}

// Import reads companies from a .csv, .xlsx or .json file. Tabular files
// need a header row with at least a name column. Rows without a name are
// skipped; a missing slug is derived from the name. Later rows win on
// duplicate slugs.
func Import(ctx context.Context, path string) ([]model.Company, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "directory: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		rows, err := readCSV(ctx, f)
		if err != nil {
			return nil, eris.Wrapf(err, "directory: read %s", path)
		}
		return fromRows(rows)
	case ".xlsx":
		rows, err := readXLSX(path)
		if err != nil {
			return nil, eris.Wrapf(err, "directory: read %s", path)
		}
		return fromRows(rows)
	case ".json":
		return importJSON(ctx, path)
	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "directory: import %s", path)
	}
}

func importJSON(ctx context.Context, path string) ([]model.Company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "directory: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	itemCh, errCh := fetcher.DecodeJSONArray[model.Company](ctx, f)
	var out []model.Company
	for c := range itemCh {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		if c.Slug == "" {
			c.Slug = model.Slugify(c.Name)
		}
		out = append(out, c)
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrapf(err, "directory: read %s", path)
	}
	return dedupe(out), nil
}

func fromRows(rows [][]string) ([]model.Company, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		key := strings.ToLower(strings.Join(strings.Fields(h), "_"))
		if field, ok := columnAliases[key]; ok {
			if _, dup := cols[field]; !dup {
				cols[field] = i
			}
		}
	}
	if _, ok := cols["name"]; !ok {
		return nil, eris.New("directory: header has no name column")
	}

	get := func(row []string, field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []model.Company
	for n, row := range rows[1:] {
		c := model.Company{
			Slug:        get(row, "slug"),
			Name:        get(row, "name"),
			Country:     get(row, "country"),
			Segment:     get(row, "segment"),
			FundingDate: get(row, "funding_date"),
		}
		if c.Name == "" {
			zap.L().Debug("directory: skipping row without name", zap.Int("row", n+2))
			continue
		}
		if c.Slug == "" {
			c.Slug = model.Slugify(c.Name)
		}
		funding, err := ParseFunding(get(row, "funding"))
		if err != nil {
			return nil, eris.Wrapf(err, "directory: row %d", n+2)
		}
		c.Funding = funding
		out = append(out, c)
	}
	return dedupe(out), nil
}

// ParseFunding reads a dollar figure such as "$1,250,000" or "2.5M". An
// empty string is no figure.
func ParseFunding(s string) (*float64, error) {
	s = strings.TrimSpace(strings.NewReplacer("$", "", ",", "", " ", "").Replace(s))
	if s == "" {
		return nil, nil
	}

	mult := 1.0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		mult = 1e3
	case "M":
		mult = 1e6
	case "B":
		mult = 1e9
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid funding %q", s)
	}
	v *= mult
	return &v, nil
}

// dedupe keeps the last row per slug at the position of its first
// occurrence.
func dedupe(companies []model.Company) []model.Company {
	pos := make(map[string]int, len(companies))
	out := make([]model.Company, 0, len(companies))
	for _, c := range companies {
		if i, ok := pos[c.Slug]; ok {
			zap.L().Warn("directory: duplicate slug, later row wins", zap.String("slug", c.Slug))
			out[i] = c
			continue
		}
		pos[c.Slug] = len(out)
		out = append(out, c)
	}
	return out
}

// MergeSummary counts what an import changed.
type MergeSummary struct {
	Added     int
	Updated   int
	Unchanged int
	Removed   int
}

// Merge replaces the directory with imported. A company the import leaves
// without a funding date keeps the one already recorded.
func Merge(existing, imported []model.Company) ([]model.Company, MergeSummary) {
	idx := model.IndexCompanies(existing)
	var sum MergeSummary

	out := make([]model.Company, len(imported))
	seen := make(map[string]bool, len(imported))
	for i, c := range imported {
		seen[c.Slug] = true
		prev := idx.Lookup(existing, c.Slug)
		if prev == nil {
			sum.Added++
			out[i] = c
			continue
		}
		if c.FundingDate == "" {
			c.FundingDate = prev.FundingDate
		}
		if sameCompany(*prev, c) {
			sum.Unchanged++
		} else {
			sum.Updated++
		}
		out[i] = c
	}
	for _, c := range existing {
		if !seen[c.Slug] {
			sum.Removed++
		}
	}
	return out, sum
}

func sameCompany(a, b model.Company) bool {
	if a.Name != b.Name || a.Country != b.Country || a.Segment != b.Segment || a.FundingDate != b.FundingDate {
		return false
	}
	if (a.Funding == nil) != (b.Funding == nil) {
		return false
	}
	return a.Funding == nil || *a.Funding == *b.Funding
}
