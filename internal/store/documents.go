package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formd-cli/internal/model"
)

// Documents gives typed access to the pipeline's documents on top of a
// Backend. Loads return empty documents when nothing has been stored yet.
type Documents struct {
	backend Backend
}

// NewDocuments wraps b.
func NewDocuments(b Backend) *Documents {
	return &Documents{backend: b}
}

// Snapshot is a set of documents written together. Nil fields are left as
// they are in the store.
type Snapshot struct {
	Companies []model.Company
	Matches   *model.MatchIndex
	Results   *model.ResultIndex
	Review    *model.ReviewQueue
}

// Encode renders a document the way it is persisted: indented JSON with a
// trailing newline. Map keys come out sorted, so equal documents encode to
// equal bytes.
func Encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "store: encode")
	}
	return append(data, '\n'), nil
}

func (d *Documents) load(ctx context.Context, key string, v any) (bool, error) {
	data, err := d.backend.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, eris.Wrapf(err, "store: decode %s", key)
	}
	return true, nil
}

func (d *Documents) put(ctx context.Context, docs map[string]any) error {
	encoded := make(map[string][]byte, len(docs))
	for key, v := range docs {
		data, err := Encode(v)
		if err != nil {
			return eris.Wrapf(err, "store: %s", key)
		}
		encoded[key] = data
	}
	return d.backend.PutMany(ctx, encoded)
}

// LoadCompanies returns the company directory in stored order.
func (d *Documents) LoadCompanies(ctx context.Context) ([]model.Company, error) {
	var companies []model.Company
	if _, err := d.load(ctx, KeyCompanies, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// SaveCompanies replaces the company directory.
func (d *Documents) SaveCompanies(ctx context.Context, companies []model.Company) error {
	if companies == nil {
		companies = []model.Company{}
	}
	return d.put(ctx, map[string]any{KeyCompanies: companies})
}

// LoadMatches returns the matches document.
func (d *Documents) LoadMatches(ctx context.Context) (*model.MatchIndex, error) {
	idx := model.NewMatchIndex()
	if _, err := d.load(ctx, KeyMatches, idx); err != nil {
		return nil, err
	}
	idx.Ensure()
	return idx, nil
}

// SaveMatches replaces the matches document.
func (d *Documents) SaveMatches(ctx context.Context, idx *model.MatchIndex) error {
	return d.put(ctx, map[string]any{KeyMatches: idx})
}

// LoadResults returns the results document.
func (d *Documents) LoadResults(ctx context.Context) (*model.ResultIndex, error) {
	idx := model.NewResultIndex()
	if _, err := d.load(ctx, KeyResults, idx); err != nil {
		return nil, err
	}
	idx.Ensure()
	return idx, nil
}

// SaveResults replaces the results document.
func (d *Documents) SaveResults(ctx context.Context, idx *model.ResultIndex) error {
	return d.put(ctx, map[string]any{KeyResults: idx})
}

// LoadReview returns the last generated review queue, or nil if none exists.
func (d *Documents) LoadReview(ctx context.Context) (*model.ReviewQueue, error) {
	var q model.ReviewQueue
	ok, err := d.load(ctx, KeyReview, &q)
	if err != nil || !ok {
		return nil, err
	}
	return &q, nil
}

// LoadFailures returns the failure audit trail.
func (d *Documents) LoadFailures(ctx context.Context) ([]model.Failure, error) {
	var failures []model.Failure
	if _, err := d.load(ctx, KeyFailures, &failures); err != nil {
		return nil, err
	}
	return failures, nil
}

// AppendFailures adds entries to the audit trail.
func (d *Documents) AppendFailures(ctx context.Context, entries ...model.Failure) error {
	if len(entries) == 0 {
		return nil
	}
	existing, err := d.LoadFailures(ctx)
	if err != nil {
		return err
	}
	return d.put(ctx, map[string]any{KeyFailures: append(existing, entries...)})
}

// SaveSnapshot writes every non-nil document of s in one PutMany.
func (d *Documents) SaveSnapshot(ctx context.Context, s Snapshot) error {
	docs := make(map[string]any, 4)
	if s.Companies != nil {
		docs[KeyCompanies] = s.Companies
	}
	if s.Matches != nil {
		docs[KeyMatches] = s.Matches
	}
	if s.Results != nil {
		docs[KeyResults] = s.Results
	}
	if s.Review != nil {
		docs[KeyReview] = s.Review
	}
	if len(docs) == 0 {
		return nil
	}
	return d.put(ctx, docs)
}
