package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/formd-cli/internal/edgar"
	"github.com/sells-group/formd-cli/internal/fetcher"
	"github.com/sells-group/formd-cli/internal/model"
	"github.com/sells-group/formd-cli/internal/resolve"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]edgar.Hit
	errs    map[string]error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, name string) ([]edgar.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, name)
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return f.results[name], nil
}

type memStore struct {
	idx      *model.MatchIndex
	results  *model.ResultIndex
	saves    int
	failures []model.Failure
}

func (m *memStore) LoadMatches(context.Context) (*model.MatchIndex, error) {
	if m.idx == nil {
		m.idx = model.NewMatchIndex()
	}
	return m.idx, nil
}

func (m *memStore) SaveMatches(_ context.Context, idx *model.MatchIndex) error {
	m.idx = idx
	m.saves++
	return nil
}

func (m *memStore) LoadResults(context.Context) (*model.ResultIndex, error) {
	if m.results == nil {
		m.results = model.NewResultIndex()
	}
	return m.results, nil
}

func (m *memStore) SaveResults(_ context.Context, idx *model.ResultIndex) error {
	m.results = idx
	return nil
}

func (m *memStore) AppendFailures(_ context.Context, entries ...model.Failure) error {
	m.failures = append(m.failures, entries...)
	return nil
}

func hit(cik, name, date, acc string) edgar.Hit {
	return edgar.Hit{CIK: cik, DisplayName: name, FilingDate: date, FormType: "D", AccessionNumber: acc}
}

func newTestOrchestrator(s Searcher, st Store, cfg Config) *Orchestrator {
	o := New(s, st, resolve.NewScorer(resolve.NewNormalizer(nil)), cfg)
	o.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return o
}

func TestRun_MatchSortsAndCapsFilings(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]edgar.Hit{
		"Brex": {
			hit("1", "Brex Inc.", "2021-01-15", "a1"),
			hit("1", "BREX INC", "2023-05-02", "a2"),
			hit("1", "Brex Inc.", "2022-07-01", "a3"),
		},
	}}
	st := &memStore{}
	o := newTestOrchestrator(fs, st, Config{MaxFilings: 2})

	sum, err := o.Run(context.Background(), []model.Company{{Slug: "brex", Name: "Brex"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, Summary{Considered: 1, Searched: 1, Matched: 1}, sum)

	m := st.idx.Matches["brex"]
	assert.Equal(t, "Brex Inc.", m.EntityName)
	assert.Equal(t, "1", m.CIK)
	assert.Equal(t, model.ConfidenceHigh, m.Confidence)
	assert.Equal(t, model.StatusUnset, m.Status)
	require.Len(t, m.Filings, 2)
	assert.Equal(t, "a2", m.Filings[0].AccessionNumber)
	assert.Equal(t, "a3", m.Filings[1].AccessionNumber)
	assert.Equal(t, 1, st.idx.Metadata.Matched)
	assert.Equal(t, []string{"Brex"}, fs.queries)
}

func TestRun_BestIssuerStrictlyHigher(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]edgar.Hit{
		"Ramp": {
			hit("10", "Ramp Sports Holdings Fund", "2020-01-01", "x1"),
			hit("20", "Ramp Business Corp", "2020-02-01", "x2"),
			hit("30", "Ramp Inc", "2019-02-01", "x3"),
			hit("40", "RAMP LLC", "2024-02-01", "x4"),
		},
	}}
	st := &memStore{}
	o := newTestOrchestrator(fs, st, Config{})

	_, err := o.Run(context.Background(), []model.Company{{Slug: "ramp", Name: "Ramp"}}, Options{})
	require.NoError(t, err)

	// CIK 30 and 40 both score high; the first seen keeps the tier.
	m := st.idx.Matches["ramp"]
	assert.Equal(t, "30", m.CIK)
	assert.Equal(t, model.ConfidenceHigh, m.Confidence)
}

func TestRun_Unmatched(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]edgar.Hit{
		"Zeta": {hit("1", "Completely Different Biotech", "2020-01-01", "z1")},
	}}
	st := &memStore{}
	o := newTestOrchestrator(fs, st, Config{})

	sum, err := o.Run(context.Background(), []model.Company{{Slug: "zeta", Name: "Zeta"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Unmatched)
	assert.Equal(t, []string{"zeta"}, st.idx.Unmatched)
	assert.Empty(t, st.idx.Matches)
}

func TestRun_ResumeSkipsDone(t *testing.T) {
	st := &memStore{idx: model.NewMatchIndex()}
	st.idx.Matches["a"] = model.Match{EntityName: "A", Confidence: model.ConfidenceHigh}
	st.idx.Unmatched = []string{"b"}
	fs := &fakeSearcher{}
	o := newTestOrchestrator(fs, st, Config{})

	sum, err := o.Run(context.Background(), []model.Company{
		{Slug: "a", Name: "A"}, {Slug: "b", Name: "B"}, {Slug: "c", Name: "C"},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 1, sum.Searched)
	assert.Equal(t, []string{"C"}, fs.queries)
}

func TestRun_OnlyForcesResearch(t *testing.T) {
	st := &memStore{idx: model.NewMatchIndex()}
	st.idx.Unmatched = []string{"brex", "other"}
	fs := &fakeSearcher{results: map[string][]edgar.Hit{
		"Brex": {hit("1", "Brex Inc.", "2023-05-02", "a2")},
	}}
	o := newTestOrchestrator(fs, st, Config{})

	sum, err := o.Run(context.Background(), []model.Company{
		{Slug: "brex", Name: "Brex"}, {Slug: "other", Name: "Other"},
	}, Options{Only: "brex"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Matched)
	assert.Equal(t, []string{"other"}, st.idx.Unmatched)
	assert.Contains(t, st.idx.Matches, "brex")

	_, err = o.Run(context.Background(), nil, Options{Only: "ghost"})
	assert.Error(t, err)
}

func TestRun_OnlyKeepsMatchWhenSearchFails(t *testing.T) {
	st := &memStore{idx: model.NewMatchIndex()}
	st.idx.Matches["brex"] = model.Match{
		EntityName: "Brex Inc.", CIK: "1", Confidence: model.ConfidenceHigh,
		Status: model.StatusRejected, ValidationReason: "industry",
	}
	fs := &fakeSearcher{errs: map[string]error{"Brex": eris.Wrap(fetcher.ErrTimeout, "fetch")}}
	o := newTestOrchestrator(fs, st, Config{})

	sum, err := o.Run(context.Background(), []model.Company{{Slug: "brex", Name: "Brex"}}, Options{Only: "brex"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	require.Contains(t, st.idx.Matches, "brex")
	assert.Equal(t, model.StatusRejected, st.idx.Matches["brex"].Status)
	assert.Equal(t, "1", st.idx.Matches["brex"].CIK)
}

func TestRun_OnlyKeepsMatchWhenNothingFound(t *testing.T) {
	st := &memStore{idx: model.NewMatchIndex()}
	st.idx.Matches["brex"] = model.Match{EntityName: "Brex Inc.", CIK: "1", Confidence: model.ConfidenceHigh}
	o := newTestOrchestrator(&fakeSearcher{}, st, Config{})

	sum, err := o.Run(context.Background(), []model.Company{{Slug: "brex", Name: "Brex"}}, Options{Only: "brex"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Unmatched)
	assert.Contains(t, st.idx.Matches, "brex")
	assert.Empty(t, st.idx.Unmatched)
}

func TestRun_OnlyIssuerChangeDropsStaleResult(t *testing.T) {
	amount := 5e6
	st := &memStore{idx: model.NewMatchIndex(), results: model.NewResultIndex()}
	st.idx.Matches["brex"] = model.Match{EntityName: "Brex Holdings", CIK: "1", Status: model.StatusRejected}
	st.results.Companies["brex"] = model.FundingResult{FundingFound: &amount, AccessionNumber: "old"}
	st.results.Companies["ramp"] = model.FundingResult{FundingFound: &amount}
	fs := &fakeSearcher{results: map[string][]edgar.Hit{
		"Brex": {hit("2", "Brex Inc.", "2024-01-10", "new")},
	}}
	o := newTestOrchestrator(fs, st, Config{})

	_, err := o.Run(context.Background(), []model.Company{{Slug: "brex", Name: "Brex"}}, Options{Only: "brex"})
	require.NoError(t, err)

	m := st.idx.Matches["brex"]
	assert.Equal(t, "2", m.CIK)
	assert.Equal(t, model.StatusUnset, m.Status)
	assert.NotContains(t, st.results.Companies, "brex")
	assert.Contains(t, st.results.Companies, "ramp")
	assert.Equal(t, 1, st.results.Metadata.Searched)
}

func TestRun_OnlySameIssuerKeepsResultAndStatus(t *testing.T) {
	amount := 5e6
	st := &memStore{idx: model.NewMatchIndex(), results: model.NewResultIndex()}
	st.idx.Matches["brex"] = model.Match{EntityName: "Brex Inc.", CIK: "1", Status: model.StatusApproved}
	st.results.Companies["brex"] = model.FundingResult{FundingFound: &amount}
	fs := &fakeSearcher{results: map[string][]edgar.Hit{
		"Brex": {hit("1", "Brex Inc.", "2024-01-10", "a9")},
	}}
	o := newTestOrchestrator(fs, st, Config{})

	_, err := o.Run(context.Background(), []model.Company{{Slug: "brex", Name: "Brex"}}, Options{Only: "brex"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, st.idx.Matches["brex"].Status)
	assert.Equal(t, "a9", st.idx.Matches["brex"].Filings[0].AccessionNumber)
	assert.Contains(t, st.results.Companies, "brex")
}

func TestRun_ForbiddenAbortsAfterCheckpoint(t *testing.T) {
	fs := &fakeSearcher{
		results: map[string][]edgar.Hit{"Alpha": {hit("1", "Alpha", "2020-01-01", "a")}},
		errs:    map[string]error{"Beta": eris.Wrap(fetcher.ErrForbidden, "fetch")},
	}
	st := &memStore{}
	o := newTestOrchestrator(fs, st, Config{BatchSize: 20})

	sum, err := o.Run(context.Background(), []model.Company{
		{Slug: "alpha", Name: "Alpha"}, {Slug: "beta", Name: "Beta"}, {Slug: "gamma", Name: "Gamma"},
	}, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetcher.ErrForbidden))
	assert.True(t, sum.Aborted)
	assert.Equal(t, 1, st.saves)
	assert.Contains(t, st.idx.Matches, "alpha")
	assert.NotContains(t, fs.queries, "Gamma")
}

func TestRun_OtherErrorsRecordedAndContinue(t *testing.T) {
	fs := &fakeSearcher{
		errs:    map[string]error{"Beta": eris.Wrap(fetcher.ErrTimeout, "fetch")},
		results: map[string][]edgar.Hit{"Gamma": {hit("3", "Gamma", "2020-01-01", "g")}},
	}
	st := &memStore{}
	o := newTestOrchestrator(fs, st, Config{})

	sum, err := o.Run(context.Background(), []model.Company{
		{Slug: "beta", Name: "Beta"}, {Slug: "gamma", Name: "Gamma"},
	}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Matched)
	require.Len(t, st.failures, 1)
	assert.Equal(t, "beta", st.failures[0].Slug)
	assert.Equal(t, "search", st.failures[0].Operation)
	assert.False(t, st.idx.Done("beta"))
}

func TestRun_CheckpointsEveryBatch(t *testing.T) {
	st := &memStore{}
	o := newTestOrchestrator(&fakeSearcher{}, st, Config{BatchSize: 2})

	companies := []model.Company{
		{Slug: "a", Name: "A"}, {Slug: "b", Name: "B"}, {Slug: "c", Name: "C"},
		{Slug: "d", Name: "D"}, {Slug: "e", Name: "E"},
	}
	sum, err := o.Run(context.Background(), companies, Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Unmatched)
	assert.Equal(t, 3, st.saves)
}

func TestRun_Limit(t *testing.T) {
	fs := &fakeSearcher{}
	o := newTestOrchestrator(fs, &memStore{}, Config{})

	sum, err := o.Run(context.Background(), []model.Company{
		{Slug: "a", Name: "A"}, {Slug: "b", Name: "B"}, {Slug: "c", Name: "C"},
	}, Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Searched)
	assert.Len(t, fs.queries, 2)
}

func TestRun_DualLookupMergesAndDedupes(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]edgar.Hit{
		"Acme Robotics, Inc.": {hit("7", "Acme Robotics, Inc.", "2022-01-01", "r1")},
		"acme robotics": {
			hit("7", "Acme Robotics, Inc.", "2022-01-01", "r1"),
			hit("7", "ACME ROBOTICS INC", "2023-01-01", "r2"),
		},
	}}
	st := &memStore{}
	o := newTestOrchestrator(fs, st, Config{})

	_, err := o.Run(context.Background(), []model.Company{{Slug: "acme-robotics", Name: "Acme Robotics, Inc."}}, Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Acme Robotics, Inc.", "acme robotics"}, fs.queries)

	m := st.idx.Matches["acme-robotics"]
	require.Len(t, m.Filings, 2)
	assert.Equal(t, "r2", m.Filings[0].AccessionNumber)
}

func TestQueries(t *testing.T) {
	n := resolve.NewNormalizer(nil)
	assert.Equal(t, []string{"Brex"}, Queries(n, "Brex"))
	assert.Equal(t, []string{"Brex, Inc.", "brex"}, Queries(n, " Brex, Inc. "))
	assert.Equal(t, []string{"LLC"}, Queries(n, "LLC"))
}

func TestIssuerDisplayName(t *testing.T) {
	groups := groupByIssuer([]edgar.Hit{
		hit("1", "Foo Inc", "2020-01-01", "a"),
		hit("1", "FOO INC.", "2020-01-02", "b"),
		hit("1", "FOO INC.", "2020-01-03", "c"),
		hit("2", "Bar", "2020-01-01", "d"),
		hit("", "No CIK", "2020-01-01", "e"),
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "FOO INC.", groups[0].displayName())
	assert.Equal(t, "Bar", groups[1].displayName())
}
