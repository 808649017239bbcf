// Package memstore provides an in-memory store for tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/hansard/pkg/hansard/store"
)

// Store is an in-memory implementation of store.Source and store.Destination
// for tests. The exported error fields inject failures; set them before use.
type Store struct {
	// CountErr is returned by CountPages.
	CountErr error
	// OpenErr is returned by OpenPages.
	OpenErr error
	// NextErr is returned by a cursor once it has served FailAfter pages.
	NextErr   error
	FailAfter int
	// AppendErr is returned by AppendSpeeches.
	AppendErr error

	mu          sync.RWMutex
	pages       []store.Page
	speeches    []store.SpeechRow
	pagesServed int
	appendCalls int
}

var (
	_ store.Source      = (*Store)(nil)
	_ store.Destination = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// AddPages adds source pages.
func (s *Store) AddPages(pages ...store.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, pages...)
}

// CountPages implements store.Source.
func (s *Store) CountPages(ctx context.Context) (int, error) {
	if s.CountErr != nil {
		return 0, s.CountErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages), nil
}

// OpenPages implements store.Source. The cursor iterates a snapshot taken at
// open time, ordered by date text with insertion order breaking ties.
func (s *Store) OpenPages(ctx context.Context) (store.PageCursor, error) {
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.mu.RLock()
	snapshot := make([]store.Page, len(s.pages))
	copy(snapshot, s.pages)
	s.mu.RUnlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Date < snapshot[j].Date
	})
	return &cursor{store: s, pages: snapshot}, nil
}

// AppendSpeeches implements store.Destination.
func (s *Store) AppendSpeeches(ctx context.Context, rows []store.SpeechRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.speeches = append(s.speeches, rows...)
	return nil
}

// Speeches returns a copy of every appended row.
func (s *Store) Speeches() []store.SpeechRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.SpeechRow, len(s.speeches))
	copy(out, s.speeches)
	return out
}

// AppendCalls returns how many times AppendSpeeches was called.
func (s *Store) AppendCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appendCalls
}

// PagesServed returns how many pages all cursors have returned so far.
func (s *Store) PagesServed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagesServed
}

type cursor struct {
	store  *Store
	pages  []store.Page
	pos    int
	closed bool
}

func (c *cursor) Next(ctx context.Context) (store.Page, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.Page{}, false, err
	}
	if c.store.NextErr != nil && c.pos >= c.store.FailAfter {
		return store.Page{}, false, c.store.NextErr
	}
	if c.closed || c.pos >= len(c.pages) {
		return store.Page{}, false, nil
	}
	page := c.pages[c.pos]
	c.pos++

	c.store.mu.Lock()
	c.store.pagesServed++
	c.store.mu.Unlock()
	return page, true, nil
}

func (c *cursor) Close() error {
	c.closed = true
	return nil
}
