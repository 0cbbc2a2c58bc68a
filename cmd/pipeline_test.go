//go:build !integration

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/formd-cli/internal/classify"
	"github.com/sells-group/formd-cli/internal/extract"
	"github.com/sells-group/formd-cli/internal/model"
	"github.com/sells-group/formd-cli/internal/search"
)

type fakeIssuer struct {
	cik, name, accession, date, sold string
}

var fakeIssuers = map[string]fakeIssuer{
	`"Brex"`: {"0001234567", "Brex Inc.", "0001234567-23-000001", "2023-05-02", "12,500,000"},
	`"Ramp"`: {"0000000777", "RAMp Sports LLC", "0000000777-23-000009", "2023-07-04", "3,000,000"},
}

// newFakeEdgar serves EFTS search results and primary documents for
// fakeIssuers; any other query has no hits.
func newFakeEdgar(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		iss, ok := fakeIssuers[r.URL.Query().Get("q")]
		if !ok {
			fmt.Fprint(w, `{"hits": {"hits": []}}`)
			return
		}
		fmt.Fprintf(w, `{"hits": {"hits": [{"_id": "%s:primary_doc.xml", "_source": {
			"ciks": ["%s"], "display_names": ["%s  (CIK %s)"], "file_date": "%s",
			"form": "D", "root_forms": ["D"], "adsh": "%s"}}]}}`,
			iss.accession, iss.cik, iss.name, iss.cik, iss.date, iss.accession)
	})
	for _, iss := range fakeIssuers {
		iss := iss
		path := fmt.Sprintf("/Archives/%s/%s/primary_doc.xml", trimZeros(iss.cik), stripDashes(iss.accession))
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprintf(w, `<?xml version="1.0"?>
<edgarSubmission>
  <primaryIssuer><entityName>%s</entityName></primaryIssuer>
  <offeringData>
    <typeOfFiling><dateOfFirstSale><value>%s</value></dateOfFirstSale></typeOfFiling>
    <offeringSalesAmounts>
      <totalOfferingAmount>Indefinite</totalOfferingAmount>
      <totalAmountSold>%s</totalAmountSold>
    </offeringSalesAmounts>
  </offeringData>
</edgarSubmission>`, iss.name, iss.date, iss.sold)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func trimZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}

func stripDashes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	srv := newFakeEdgar(t)

	c := testConfig(t)
	c.Edgar.SearchURL = srv.URL + "/search"
	c.Edgar.ArchivesURL = srv.URL + "/Archives"

	env, err := initEnv(ctx, c, "edgar")
	require.NoError(t, err)
	defer env.Close()

	require.NoError(t, env.Docs.SaveCompanies(ctx, []model.Company{
		{Slug: "acme", Name: "Acme"},
		{Slug: "brex", Name: "Brex", Segment: "fintech"},
		{Slug: "ramp", Name: "Ramp", Segment: "fintech"},
	}))
	companies, err := loadDirectory(ctx, env)
	require.NoError(t, err)

	// search
	ssum, err := search.New(env.Edgar, env.Docs, env.Scorer, search.Config{BatchSize: 2, MaxFilings: 10}).
		Run(ctx, companies, search.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, ssum.Matched)
	assert.Equal(t, 1, ssum.Unmatched)

	matches, err := env.Docs.LoadMatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ConfidenceHigh, matches.Matches["brex"].Confidence)
	assert.Equal(t, "1234567", matches.Matches["brex"].CIK)
	assert.Equal(t, model.ConfidenceMedium, matches.Matches["ramp"].Confidence)
	assert.Equal(t, []string{"acme"}, matches.Unmatched)

	// fetch
	fsum, err := extract.New(env.Edgar, env.Docs, env.Scorer, 20).Run(ctx, companies, extract.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, fsum.Fetched)
	assert.Equal(t, 2, fsum.WithFunding)

	// dates
	in, err := loadClassifyInput(ctx, env)
	require.NoError(t, err)
	changes := extract.PlanDates(in.Companies, in.Matches, in.Results)
	require.Len(t, changes, 2)
	assert.Equal(t, 2, extract.ApplyDates(in.Companies, changes))
	require.NoError(t, env.Docs.SaveCompanies(ctx, in.Companies))

	// validate --apply
	engine, err := newEngine("", env.Scorer.Normalizer(), c.Classify.ReviewThreshold)
	require.NoError(t, err)
	in, err = loadClassifyInput(ctx, env)
	require.NoError(t, err)
	plan := engine.Plan(in, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []classify.DateRevert{{Slug: "ramp", Month: "2023-07"}}, plan.Reverts)
	assert.Equal(t, []string{"ramp"}, plan.Deletions)
	require.NoError(t, classify.Commit(ctx, env.Docs, plan))

	final, err := loadClassifyInput(ctx, env)
	require.NoError(t, err)
	byslug := map[string]model.Company{}
	for _, co := range final.Companies {
		byslug[co.Slug] = co
	}
	assert.Equal(t, "2023-05", byslug["brex"].FundingDate)
	assert.Empty(t, byslug["ramp"].FundingDate)
	assert.Equal(t, model.StatusApproved, final.Matches.Matches["brex"].Status)
	assert.Equal(t, model.StatusRejected, final.Matches.Matches["ramp"].Status)
	assert.Contains(t, final.Results.Companies, "brex")
	assert.NotContains(t, final.Results.Companies, "ramp")
	assert.Equal(t, 12_500_000.0, *final.Results.Companies["brex"].FundingFound)

	review, err := env.Docs.LoadReview(ctx)
	require.NoError(t, err)
	require.NotNil(t, review)
	require.Len(t, review.Companies, 1)
	assert.Equal(t, model.ActionAdd, review.Companies[0].Action)
}
