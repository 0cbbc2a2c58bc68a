package model

import "time"

// SourceFormD tags funding figures taken from a Form D filing.
const SourceFormD = "sec_form_d"

// FormDExtraction holds the handful of Form D fields this pipeline reads.
// Every field is optional; absence is a normal outcome.
type FormDExtraction struct {
	TotalOfferingAmount *float64 `json:"total_offering_amount"`
	TotalAmountSold     *float64 `json:"total_amount_sold"`
	TotalRemaining      *float64 `json:"total_remaining"`
	DateOfFirstSale     string   `json:"date_of_first_sale,omitempty"`
	IssuerName          string   `json:"issuer_name,omitempty"`
}

// HasAmounts reports whether any monetary field was present.
func (f *FormDExtraction) HasAmounts() bool {
	return f != nil && (f.TotalOfferingAmount != nil || f.TotalAmountSold != nil || f.TotalRemaining != nil)
}

// FundingResult is the extractor's output for one company.
type FundingResult struct {
	FundingFound    *float64         `json:"funding_found"`
	Source          string           `json:"source"`
	Confidence      Confidence       `json:"confidence"`
	FormD           *FormDExtraction `json:"form_d,omitempty"`
	AccessionNumber string           `json:"accession_number,omitempty"`
	FilingDate      string           `json:"filing_date,omitempty"`
	DocumentURL     string           `json:"document_url,omitempty"`
	Note            string           `json:"note,omitempty"`
	FetchedAt       time.Time        `json:"fetched_at"`
}

// ResultMetadata summarizes the Results store.
type ResultMetadata struct {
	Searched int `json:"searched"`
	Found    int `json:"found"`
}

// ResultIndex is the Results store document.
type ResultIndex struct {
	Metadata  ResultMetadata           `json:"metadata"`
	Companies map[string]FundingResult `json:"companies"`
}

// NewResultIndex returns an empty, ready-to-use index.
func NewResultIndex() *ResultIndex {
	return &ResultIndex{Companies: map[string]FundingResult{}}
}

// Ensure initializes nil collections after decoding a sparse document.
func (r *ResultIndex) Ensure() {
	if r.Companies == nil {
		r.Companies = map[string]FundingResult{}
	}
}

// Refresh recomputes metadata counts.
func (r *ResultIndex) Refresh() {
	r.Metadata.Searched = len(r.Companies)
	found := 0
	for _, res := range r.Companies {
		if res.FundingFound != nil {
			found++
		}
	}
	r.Metadata.Found = found
}
