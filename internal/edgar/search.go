package edgar

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/fetcher"
)

// Hit is one filing returned by full-text search, attributed to one issuer.
type Hit struct {
	CIK             string
	DisplayName     string
	FilingDate      string
	FormType        string
	RootForm        string
	AccessionNumber string
}

// eftsResponse is the subset of the EFTS search-index response we consume.
type eftsResponse struct {
	Hits struct {
		Hits []struct {
			ID     string `json:"_id"`
			Source struct {
				CIKs         []string `json:"ciks"`
				DisplayNames []string `json:"display_names"`
				FileDate     string   `json:"file_date"`
				Form         string   `json:"form"`
				RootForms    []string `json:"root_forms"`
				ADSH         string   `json:"adsh"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

var cikSuffix = regexp.MustCompile(`\s*\(CIK\s*\d+\)\s*$`)

// CleanDisplayName removes the "(CIK 0001234567)" annotation EFTS appends to
// issuer names.
func CleanDisplayName(name string) string {
	return strings.TrimSpace(cikSuffix.ReplaceAllString(name, ""))
}

// SearchURL builds the exact-phrase Form D query for name.
func (c *Client) SearchURL(name string) string {
	q := url.Values{}
	q.Set("q", `"`+strings.TrimSpace(name)+`"`)
	q.Set("forms", "D")
	return c.opts.SearchURL + "?" + q.Encode()
}

// Search runs an exact-phrase Form D query. A filing naming several issuers
// yields one Hit per issuer.
func (c *Client) Search(ctx context.Context, name string) ([]Hit, error) {
	body, err := c.get(ctx, c.SearchURL(name))
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: search %q", name)
	}

	resp, err := fetcher.DecodeJSONObject[eftsResponse](body)
	if err != nil {
		return nil, eris.Wrapf(ErrParse, "edgar: search %q: %v", name, err)
	}

	var hits []Hit
	for _, h := range resp.Hits.Hits {
		src := h.Source
		accession := src.ADSH
		if accession == "" {
			accession, _, _ = strings.Cut(h.ID, ":")
		}
		rootForm := ""
		if len(src.RootForms) > 0 {
			rootForm = src.RootForms[0]
		}
		for i, cik := range src.CIKs {
			display := ""
			if i < len(src.DisplayNames) {
				display = CleanDisplayName(src.DisplayNames[i])
			}
			hits = append(hits, Hit{
				CIK:             normalizeCIK(cik),
				DisplayName:     display,
				FilingDate:      src.FileDate,
				FormType:        src.Form,
				RootForm:        rootForm,
				AccessionNumber: accession,
			})
		}
	}
	return hits, nil
}

func normalizeCIK(cik string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(cik), "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
