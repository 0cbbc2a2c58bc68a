package edgar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/fetcher"
	"github.com/sells-group/formd-cli/internal/model"
)

// formDXML is the narrow slice of the Form D schema we read. Every element
// is optional.
type formDXML struct {
	Issuer struct {
		EntityName string `xml:"entityName"`
	} `xml:"primaryIssuer"`
	Offering struct {
		DateOfFirstSale string `xml:"typeOfFiling>dateOfFirstSale>value"`
		TotalOffering   string `xml:"offeringSalesAmounts>totalOfferingAmount"`
		TotalSold       string `xml:"offeringSalesAmounts>totalAmountSold"`
		TotalRemaining  string `xml:"offeringSalesAmounts>totalRemaining"`
	} `xml:"offeringData"`
}

// Document is a fetched and decoded Form D.
type Document struct {
	URL        string
	Extraction model.FormDExtraction
}

// CandidateURLs returns the document locations tried for a filing, in order:
// the structured primary document, then the legacy full submission text.
func (c *Client) CandidateURLs(cik, accession string) []string {
	cik = normalizeCIK(cik)
	folder := strings.ReplaceAll(accession, "-", "")
	return []string{
		fmt.Sprintf("%s/%s/%s/primary_doc.xml", c.opts.ArchivesURL, cik, folder),
		fmt.Sprintf("%s/%s/%s.txt", c.opts.ArchivesURL, cik, accession),
	}
}

// FetchFormD fetches and parses the Form D for accession. NotFound and
// Forbidden on one candidate move on to the next; if none answers the error
// matches ErrUnavailable. Throttling or timeouts that outlast the retry
// budget are returned as-is.
//
// When a document is fetched but cannot be decoded, FetchFormD returns the
// Document (URL set, extraction empty) together with an error matching
// ErrParse.
func (c *Client) FetchFormD(ctx context.Context, cik, accession string) (*Document, error) {
	log := zap.L().With(zap.String("component", "edgar"), zap.String("accession", accession))

	var lastErr error
	for _, u := range c.CandidateURLs(cik, accession) {
		body, err := c.get(ctx, u)
		if err != nil {
			if errors.Is(err, fetcher.ErrNotFound) || errors.Is(err, fetcher.ErrForbidden) {
				log.Debug("candidate unavailable", zap.String("url", u), zap.Error(err))
				lastErr = err
				continue
			}
			return nil, eris.Wrapf(err, "edgar: fetch form d %s", accession)
		}

		doc := &Document{URL: u}
		ext, err := ParseFormD(body)
		if err != nil {
			return doc, eris.Wrapf(err, "edgar: %s", u)
		}
		doc.Extraction = *ext
		return doc, nil
	}
	return nil, eris.Wrapf(ErrUnavailable, "edgar: form d %s: %v", accession, lastErr)
}

// ParseFormD decodes a primary_doc.xml body or a legacy full submission
// wrapping one.
func ParseFormD(body []byte) (*model.FormDExtraction, error) {
	xmlBody, ok := cutSubmission(body)
	if !ok {
		return nil, eris.Wrap(ErrParse, "no edgarSubmission element")
	}
	doc, err := fetcher.DecodeXML[formDXML](xmlBody)
	if err != nil {
		return nil, eris.Wrapf(ErrParse, "%v", err)
	}
	return &model.FormDExtraction{
		TotalOfferingAmount: parseAmount(doc.Offering.TotalOffering),
		TotalAmountSold:     parseAmount(doc.Offering.TotalSold),
		TotalRemaining:      parseAmount(doc.Offering.TotalRemaining),
		DateOfFirstSale:     strings.TrimSpace(doc.Offering.DateOfFirstSale),
		IssuerName:          strings.TrimSpace(doc.Issuer.EntityName),
	}, nil
}

// cutSubmission returns the edgarSubmission element from body. A bare XML
// document (prolog included) is returned unchanged; SGML wrappers are cut.
func cutSubmission(body []byte) ([]byte, bool) {
	start := bytes.Index(body, []byte("<edgarSubmission"))
	end := bytes.LastIndex(body, []byte("</edgarSubmission>"))
	if start < 0 || end < start {
		return nil, false
	}
	end += len("</edgarSubmission>")
	if prolog := bytes.Index(body, []byte("<?xml")); prolog >= 0 && prolog < start {
		start = prolog
	}
	return body[start:end], true
}

// parseAmount reads a dollar figure. Empty and non-numeric values such as
// "Indefinite" yield nil.
func parseAmount(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", "$", "").Replace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
