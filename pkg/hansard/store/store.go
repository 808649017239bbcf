// Package store defines the page source and speech destination contracts.
package store

import (
	"context"
	"regexp"
)

// Page is one archived proceedings page as held by the source store. Date is
// the source's sitting date as text; it is never reinterpreted.
type Page struct {
	PageID string
	Date   string
	HTML   string
}

// SpeechRow is one extracted utterance as written to the destination store.
type SpeechRow struct {
	PageID    string
	Date      string
	SpeakerID string
	Speaker   string
	Speech    string
}

// Source is a readable collection of archived pages.
type Source interface {
	// CountPages returns the number of pages in the collection.
	CountPages(ctx context.Context) (int, error)
	// OpenPages opens a cursor over all pages in ascending date order.
	OpenPages(ctx context.Context) (PageCursor, error)
}

// PageCursor iterates pages. Next returns ok=false once exhausted.
type PageCursor interface {
	Next(ctx context.Context) (page Page, ok bool, err error)
	Close() error
}

// Destination is an append-only collection of speech rows.
type Destination interface {
	// AppendSpeeches writes all rows or none of them.
	AppendSpeeches(ctx context.Context, rows []SpeechRow) error
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTableName reports whether name can be spliced into SQL as a table name.
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}
