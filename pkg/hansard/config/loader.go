package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/hansard/pkg/hansard/corpus"
	"github.com/cognicore/hansard/pkg/hansard/internalerr"
	"github.com/cognicore/hansard/pkg/hansard/parse"
	"github.com/cognicore/hansard/pkg/hansard/store/sqlstore"
)

// Components holds everything a run needs, built from a Config.
type Components struct {
	Source      *sqlstore.Store
	Destination *sqlstore.Store
	Builder     *corpus.Builder
}

// Close releases both stores.
func (c *Components) Close() error {
	var firstErr error
	for _, s := range []*sqlstore.Store{c.Source, c.Destination} {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Load opens the stores and constructs the builder. The source database must
// already exist; the destination is created on first write.
func (c Config) Load(ctx context.Context, logger *zap.Logger, progress corpus.Progress) (*Components, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	comp := &Components{}

	src, err := sqlstore.Open(ctx, c.Source.Path, sqlstore.WithPageTable(c.Source.Table), sqlstore.MustExist())
	if err != nil {
		return nil, fmt.Errorf("%w: open source: %w", internalerr.ErrSourceUnavailable, err)
	}
	comp.Source = src

	dst, err := sqlstore.Open(ctx, c.Destination.Path, sqlstore.WithSpeechTable(c.Destination.Table))
	if err != nil {
		comp.Close()
		return nil, fmt.Errorf("%w: open destination: %w", internalerr.ErrDestinationUnavailable, err)
	}
	comp.Destination = dst

	comp.Builder = corpus.New(parse.DefaultChain(),
		corpus.WithLogger(logger),
		corpus.WithProgress(progress),
		corpus.WithWorkers(c.Build.Workers),
		corpus.WithRowTimeout(c.Build.RowTimeout),
	)
	return comp, nil
}
