// Package corpus builds a speech corpus from archived proceedings pages.
//
// A Builder streams pages from a store.Source in ascending date order, runs
// each through a parse.Chain and collects the extracted utterances into an
// in-memory Corpus. Pages that no stage can parse are skipped; only store
// failures abort a build. Commit appends a finished Corpus to a
// store.Destination in one bulk write.
package corpus

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/hansard/pkg/hansard/internalerr"
	"github.com/cognicore/hansard/pkg/hansard/parse"
	"github.com/cognicore/hansard/pkg/hansard/store"
)

// ProgressLabel is the label set on the progress sink at the start of a build.
const ProgressLabel = "entries parsed"

// Builder runs extraction batches.
type Builder struct {
	chain      *parse.Chain
	logger     *zap.Logger
	progress   Progress
	workers    int
	rowTimeout time.Duration

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for run summaries and skipped pages.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithProgress sets the progress sink.
func WithProgress(p Progress) Option {
	return func(b *Builder) {
		if p != nil {
			b.progress = p
		}
	}
}

// WithWorkers sets how many pages are parsed concurrently. Values below 1
// mean 1. Corpus order does not depend on the worker count.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n < 1 {
			n = 1
		}
		b.workers = n
	}
}

// WithRowTimeout bounds the time spent parsing one page. A page that exceeds
// it is skipped. Zero disables the bound.
func WithRowTimeout(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.rowTimeout = d
		}
	}
}

// New creates a Builder that parses pages with chain.
func New(chain *parse.Chain, opts ...Option) *Builder {
	b := &Builder{
		chain:    chain,
		logger:   zap.NewNop(),
		progress: nopProgress{},
		workers:  1,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) newRunID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ulid.MustNew(ulid.Now(), b.entropy).String()
}

type job struct {
	idx  int
	page store.Page
}

type outcome struct {
	idx  int
	page store.Page
	res  parse.Result
	err  error
}

// Build reads at most maxRows pages from src (all pages when maxRows is
// omitted) and returns the extracted corpus.
//
// maxRows must be a single positive value; anything else fails with
// internalerr.ErrInvalidArgument before src is touched. Source failures fail
// with internalerr.ErrSourceUnavailable and discard the partial corpus.
func (b *Builder) Build(ctx context.Context, src store.Source, maxRows ...int) (*Corpus, error) {
	limit, err := rowLimit(maxRows)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", internalerr.ErrInvalidArgument)
	}
	if b.chain == nil {
		return nil, fmt.Errorf("%w: nil parse chain", internalerr.ErrInvalidArgument)
	}

	runID := b.newRunID()
	log := b.logger.With(zap.String("run_id", runID))

	total, err := src.CountPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count pages: %w", internalerr.ErrSourceUnavailable, err)
	}
	if limit > 0 && limit < total {
		total = limit
	}
	b.progress.Reset(total)
	b.progress.SetLabel(ProgressLabel)

	cur, err := src.OpenPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open pages: %w", internalerr.ErrSourceUnavailable, err)
	}
	defer cur.Close()

	log.Info("build started",
		zap.Int("pages", total),
		zap.Int("workers", b.workers),
		zap.Strings("stages", b.chain.Stages()),
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, b.workers)
	results := make(chan outcome, b.workers)
	// One slot per page read but not yet applied by collect.
	window := make(chan struct{}, readAhead(b.workers))

	g.Go(func() error {
		defer close(jobs)
		for idx := 0; limit == 0 || idx < limit; idx++ {
			select {
			case window <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			page, ok, err := cur.Next(gctx)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return fmt.Errorf("%w: read page %d: %w", internalerr.ErrSourceUnavailable, idx, err)
			}
			if !ok {
				return nil
			}
			select {
			case jobs <- job{idx: idx, page: page}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var workers sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for j := range jobs {
				out := b.parsePage(gctx, j)
				select {
				case results <- out:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	c := &Corpus{RunID: runID, Rows: make([]Row, 0, total)}
	b.collect(log, c, results, window)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.Stats.Rows = len(c.Rows)
	log.Info("build finished",
		zap.Int("read", c.Stats.Read),
		zap.Int("parsed", c.Stats.Parsed),
		zap.Int("skipped", c.Stats.Skipped),
		zap.Int("rows", c.Stats.Rows),
		zap.Duration("elapsed", time.Since(start)),
	)
	return c, nil
}

// collect is the only writer of c. Outcomes arrive in completion order and
// are applied in source order; each applied outcome frees a read-ahead slot.
func (b *Builder) collect(log *zap.Logger, c *Corpus, results <-chan outcome, window <-chan struct{}) {
	pending := make(map[int]outcome)
	next := 0
	for out := range results {
		pending[out.idx] = out
		for {
			o, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			b.apply(log, c, o)
			b.progress.Advance()
			<-window
		}
	}
}

func (b *Builder) apply(log *zap.Logger, c *Corpus, o outcome) {
	c.Stats.Read++
	if o.err != nil {
		c.Stats.Skipped++
		fields := []zap.Field{
			zap.String("page_id", o.page.PageID),
			zap.String("date", o.page.Date),
			zap.Error(o.err),
		}
		var exhausted *parse.ExhaustedError
		if errors.As(o.err, &exhausted) && len(exhausted.Trace) > 0 {
			fields = append(fields, zap.ByteString("trace", exhausted.Trace))
		}
		if errors.Is(o.err, context.DeadlineExceeded) {
			log.Warn("page parse timed out, skipping", fields...)
			return
		}
		log.Debug("page not parsed, skipping", fields...)
		return
	}

	c.Stats.Parsed++
	for i := range o.res.Speeches {
		c.Rows = append(c.Rows, Row{
			PageID:    o.page.PageID,
			Date:      o.page.Date,
			SpeakerID: o.res.SpeakerIDs[i],
			Speaker:   o.res.Speakers[i],
			Speech:    o.res.Speeches[i],
		})
	}
}

func (b *Builder) parsePage(ctx context.Context, j job) outcome {
	out := outcome{idx: j.idx, page: j.page}
	if b.rowTimeout <= 0 {
		out.res, out.err = b.chain.ParseContext(ctx, j.page.HTML)
		return out
	}

	rctx, cancel := context.WithTimeout(ctx, b.rowTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		o := out
		o.res, o.err = b.chain.ParseContext(rctx, j.page.HTML)
		done <- o
	}()

	select {
	case o := <-done:
		return o
	case <-rctx.Done():
		out.err = fmt.Errorf("parse page %s: %w", j.page.PageID, rctx.Err())
		return out
	}
}

// Commit appends every row of c to dst in a single call. Failures are
// reported as internalerr.ErrDestinationUnavailable.
func (b *Builder) Commit(ctx context.Context, c *Corpus, dst store.Destination) error {
	if c == nil {
		return fmt.Errorf("%w: nil corpus", internalerr.ErrInvalidArgument)
	}
	if dst == nil {
		return fmt.Errorf("%w: nil destination", internalerr.ErrInvalidArgument)
	}

	if err := dst.AppendSpeeches(ctx, c.Rows); err != nil {
		return fmt.Errorf("%w: append %d rows: %w", internalerr.ErrDestinationUnavailable, len(c.Rows), err)
	}

	b.logger.Info("corpus committed", zap.String("run_id", c.RunID), zap.Int("rows", len(c.Rows)))
	return nil
}

// readAhead is how many pages may be read past the oldest page still being
// parsed. It bounds the reorder buffer in collect.
func readAhead(workers int) int {
	return 2 * workers
}

func rowLimit(maxRows []int) (int, error) {
	switch len(maxRows) {
	case 0:
		return 0, nil
	case 1:
		if maxRows[0] < 1 {
			return 0, fmt.Errorf("%w: max rows must be greater than 0, got %d", internalerr.ErrInvalidArgument, maxRows[0])
		}
		return maxRows[0], nil
	default:
		return 0, fmt.Errorf("%w: at most one max rows value, got %d", internalerr.ErrInvalidArgument, len(maxRows))
	}
}
