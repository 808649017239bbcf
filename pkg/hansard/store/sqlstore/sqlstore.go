// Package sqlstore reads proceedings pages from, and appends speech rows to,
// relational databases through database/sql. SQLite (modernc.org/sqlite) and
// PostgreSQL (github.com/lib/pq) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/cognicore/hansard/pkg/hansard/internalerr"
	"github.com/cognicore/hansard/pkg/hansard/store"
)

const (
	// DefaultPageTable is the source table of archived pages.
	DefaultPageTable = "proceedings_page"
	// DefaultSpeechTable is the destination table of extracted speech.
	DefaultSpeechTable = "speech"
)

type dialect struct {
	name   string
	driver string
	// placeholder returns the bind parameter for 1-based argument n.
	placeholder func(n int) string
}

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		driver:      "sqlite",
		placeholder: func(int) string { return "?" },
	}
	postgresDialect = dialect{
		name:        "postgres",
		driver:      "postgres",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
)

// Store implements store.Source and store.Destination over a *sql.DB.
type Store struct {
	db          *sql.DB
	dialect     dialect
	pageTable   string
	speechTable string
	mustExist   bool
}

var (
	_ store.Source      = (*Store)(nil)
	_ store.Destination = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithPageTable overrides the source table name.
func WithPageTable(name string) Option {
	return func(s *Store) { s.pageTable = name }
}

// WithSpeechTable overrides the destination table name.
func WithSpeechTable(name string) Option {
	return func(s *Store) { s.speechTable = name }
}

// MustExist makes OpenSQLite fail when the database file is missing instead
// of creating an empty one, and opens it read-only. Use it for source
// databases.
func MustExist() Option {
	return func(s *Store) { s.mustExist = true }
}

func newStore(d dialect, opts []Option) (*Store, error) {
	s := &Store{
		dialect:     d,
		pageTable:   DefaultPageTable,
		speechTable: DefaultSpeechTable,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, name := range []string{s.pageTable, s.speechTable} {
		if !store.ValidTableName(name) {
			return nil, fmt.Errorf("%w: table name %q", internalerr.ErrInvalidArgument, name)
		}
	}
	return s, nil
}

// Open opens a PostgreSQL store when target is a postgres:// or
// postgresql:// URL, and a SQLite database file otherwise.
func Open(ctx context.Context, target string, opts ...Option) (*Store, error) {
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		return OpenPostgres(ctx, target, opts...)
	}
	return OpenSQLite(ctx, target, opts...)
}

// OpenSQLite opens a SQLite database with WAL mode enabled. With MustExist
// the file is opened read-only and its journal mode is left alone.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s, err := newStore(sqliteDialect, opts)
	if err != nil {
		return nil, err
	}

	dsn := path
	if s.mustExist {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", path, err)
		}
		dsn = "file:" + path + "?mode=ro"
	}

	db, err := sql.Open(sqliteDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if s.mustExist {
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("open sqlite %s: %w", path, err)
		}
	} else if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL on %s: %w", path, err)
	}

	s.db = db
	return s, nil
}

// OpenPostgres opens a PostgreSQL connection and verifies it with a ping.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s, err := newStore(postgresDialect, opts)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s.db = db
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect returns "sqlite" or "postgres".
func (s *Store) Dialect() string {
	return s.dialect.name
}

// CountPages implements store.Source.
func (s *Store) CountPages(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.pageTable)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.pageTable, err)
	}
	return n, nil
}

// OpenPages implements store.Source.
func (s *Store) OpenPages(ctx context.Context) (store.PageCursor, error) {
	query := fmt.Sprintf(`SELECT page_id, date, page_html FROM %s ORDER BY date ASC`, s.pageTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.pageTable, err)
	}
	return &pageCursor{rows: rows, table: s.pageTable}, nil
}

type pageCursor struct {
	rows  *sql.Rows
	table string
}

func (c *pageCursor) Next(ctx context.Context) (store.Page, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.Page{}, false, err
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return store.Page{}, false, fmt.Errorf("scan %s: %w", c.table, err)
		}
		return store.Page{}, false, nil
	}

	var (
		rawID   any
		rawDate any
		html    sql.NullString
	)
	if err := c.rows.Scan(&rawID, &rawDate, &html); err != nil {
		return store.Page{}, false, fmt.Errorf("scan %s row: %w", c.table, err)
	}

	pageID, err := pageIDString(rawID)
	if err != nil {
		return store.Page{}, false, fmt.Errorf("scan %s row: %w", c.table, err)
	}
	return store.Page{PageID: pageID, Date: store.DateValue(rawDate), HTML: html.String}, true, nil
}

func (c *pageCursor) Close() error {
	return c.rows.Close()
}

func pageIDString(v any) (string, error) {
	switch id := v.(type) {
	case string:
		return id, nil
	case []byte:
		return string(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case nil:
		return "", errors.New("page_id is null")
	default:
		return fmt.Sprint(id), nil
	}
}

func (s *Store) speechSchema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	page_id TEXT NOT NULL,
	date TEXT NOT NULL,
	speaker_id TEXT,
	speaker TEXT,
	speech TEXT
)`, s.speechTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_date_idx ON %s (date)`, s.speechTable, s.speechTable),
	}
}

func (s *Store) insertSpeechQuery() string {
	params := make([]string, 5)
	for i := range params {
		params[i] = s.dialect.placeholder(i + 1)
	}
	return fmt.Sprintf(`INSERT INTO %s (page_id, date, speaker_id, speaker, speech) VALUES (%s)`,
		s.speechTable, strings.Join(params, ", "))
}

// AppendSpeeches implements store.Destination. The speech table is created
// when missing; existing rows are never touched. All rows are inserted in a
// single transaction.
func (s *Store) AppendSpeeches(ctx context.Context, rows []store.SpeechRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ddl := range s.speechSchema() {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create %s: %w", s.speechTable, err)
		}
	}

	if len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, s.insertSpeechQuery())
		if err != nil {
			return fmt.Errorf("prepare insert into %s: %w", s.speechTable, err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.PageID,
				row.Date,
				row.SpeakerID,
				row.Speaker,
				row.Speech,
			); err != nil {
				return fmt.Errorf("insert into %s (page %s): %w", s.speechTable, row.PageID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
