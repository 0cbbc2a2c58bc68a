package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/config"
	"github.com/sells-group/formd-cli/internal/edgar"
	"github.com/sells-group/formd-cli/internal/fetcher"
	"github.com/sells-group/formd-cli/internal/resilience"
	"github.com/sells-group/formd-cli/internal/resolve"
	"github.com/sells-group/formd-cli/internal/store"
)

// env holds the dependencies shared by commands.
type env struct {
	Backend store.Backend
	Docs    *store.Documents
	Scorer  *resolve.Scorer
	// Edgar is nil unless the command talks to SEC.
	Edgar *edgar.Client
}

// initEnv validates the config for mode and opens the store. Mode "edgar"
// also builds the paced EDGAR client.
func initEnv(ctx context.Context, c *config.Config, mode string) (*env, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	backend, err := store.Open(ctx, c.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	e := &env{
		Backend: backend,
		Docs:    store.NewDocuments(backend),
		Scorer:  resolve.NewScorer(resolve.NewNormalizer(c.Resolve.Suffixes)),
	}
	if mode == "edgar" {
		e.Edgar = newEdgarClient(c.Edgar)
	}

	zap.L().Debug("environment ready",
		zap.String("store_driver", c.Store.Driver),
		zap.Bool("edgar", e.Edgar != nil),
	)
	return e, nil
}

func newEdgarClient(c config.EdgarConfig) *edgar.Client {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    c.UserAgent,
		Timeout:      c.Timeout(),
		MaxRedirects: c.MaxRedirects,
	})
	return edgar.NewClient(f, fetcher.NewPacer(c.MinInterval()), edgar.Options{
		SearchURL:   c.SearchURL,
		ArchivesURL: c.ArchivesURL,
		Retry:       resilience.FixedRetryConfig(c.RetryAttempts, c.RetryBackoff()),
	})
}

// Close releases the store.
func (e *env) Close() {
	if e.Backend != nil {
		if err := e.Backend.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}
