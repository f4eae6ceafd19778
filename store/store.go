// Package store persists pages, redirects, and links in an embedded
// SQLite database and answers the title<->id and neighbour queries the
// rest of the system needs. It is the only package that knows SQL.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sixdegrees/wikigraph/search"
)

// ErrNotFound is returned by Index and Lookup on a miss. It is the same
// value as search.ErrNotFound, so search.PathByTitle can recognize a
// miss from this store without search ever importing this package.
var ErrNotFound = search.ErrNotFound

// Config mirrors the Store-open options named in the project's design
// notes: a filesystem path plus the engine pragmas applied eagerly on
// every open. All of it is also reachable through the config package's
// viper-backed loader; this struct is the low-level surface it targets.
type Config struct {
	Path            string
	CreateIfMissing bool
	JournalMode     string
	Synchronous     string
	CacheSize       int
	LockingMode     string
	TempStore       string
}

// DefaultConfig returns the pragma set this package was designed
// around: bulk-ingest throughput for a single-writer, single-reader
// process, not durability.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		CreateIfMissing: true,
		JournalMode:     "OFF",
		Synchronous:     "OFF",
		CacheSize:       100000,
		LockingMode:     "EXCLUSIVE",
		TempStore:       "MEMORY",
	}
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS page (
	id    INTEGER PRIMARY KEY,
	title TEXT UNIQUE
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS redirect (
	id    INTEGER PRIMARY KEY,
	title TEXT
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS link (
	` + "`to`" + `   INTEGER,
	` + "`from`" + ` INTEGER,
	PRIMARY KEY(` + "`to`" + `, ` + "`from`" + `)
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS link_reverse ON link(` + "`from`" + `);
`

// Store owns one SQLite connection and a cache of prepared statements.
type Store struct {
	db    *sqlx.DB
	stmts map[string]*sqlx.Stmt
}

// Open opens the database file at cfg.Path, creating and installing the
// schema if it doesn't exist and cfg.CreateIfMissing is set; otherwise
// it opens the existing file read/write without issuing any CREATE.
func Open(cfg Config) (*Store, error) {
	_, statErr := os.Stat(cfg.Path)
	missing := errors.Is(statErr, os.ErrNotExist)
	if missing && !cfg.CreateIfMissing {
		return nil, fmt.Errorf("store: %s does not exist and create_if_missing is false", cfg.Path)
	}

	db, err := sqlx.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", cfg.Path, err)
	}

	s := &Store{db: db, stmts: make(map[string]*sqlx.Stmt)}
	if err := s.applyPragmas(cfg); err != nil {
		db.Close()
		return nil, err
	}
	if missing {
		if _, err := db.Exec(schemaDDL); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: installing schema: %w", err)
		}
	}
	return s, nil
}

func (s *Store) applyPragmas(cfg Config) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode = %s", cfg.JournalMode),
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.Synchronous),
		fmt.Sprintf("PRAGMA cache_size = %d", cfg.CacheSize),
		fmt.Sprintf("PRAGMA locking_mode = %s", cfg.LockingMode),
		fmt.Sprintf("PRAGMA temp_store = %s", cfg.TempStore),
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("store: applying %q: %w", p, err)
		}
	}
	return nil
}

// Close releases the prepared statement cache and the connection.
func (s *Store) Close() error {
	for _, stmt := range s.stmts {
		stmt.Close()
	}
	return s.db.Close()
}

func (s *Store) prepared(query string) (*sqlx.Stmt, error) {
	if stmt, ok := s.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := s.db.Preparex(query)
	if err != nil {
		return nil, fmt.Errorf("store: preparing statement: %w", err)
	}
	s.stmts[query] = stmt
	return stmt, nil
}

// Add inserts one page. A duplicate id or title is a constraint
// violation and is returned to the caller, wrapped with the page's id
// and title.
func (s *Store) Add(id uint32, title string) error {
	stmt, err := s.prepared(`INSERT INTO page (id, title) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	if _, err := stmt.Exec(id, title); err != nil {
		return fmt.Errorf("store: adding page %d %q: %w", id, title, err)
	}
	return nil
}

// AddRedirect inserts one redirect. Conflicts on id are ignored.
func (s *Store) AddRedirect(id uint32, title string) error {
	stmt, err := s.prepared(`INSERT OR IGNORE INTO redirect (id, title) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	if _, err := stmt.Exec(id, title); err != nil {
		return fmt.Errorf("store: adding redirect %d %q: %w", id, title, err)
	}
	return nil
}

// AddLink inserts one directed link. Duplicates are silently coalesced.
func (s *Store) AddLink(from, to uint32) error {
	stmt, err := s.prepared("INSERT OR IGNORE INTO link (`to`, `from`) VALUES (?, ?)")
	if err != nil {
		return err
	}
	if _, err := stmt.Exec(to, from); err != nil {
		return fmt.Errorf("store: adding link %d -> %d: %w", from, to, err)
	}
	return nil
}

// Index looks up a page's id by its exact title.
func (s *Store) Index(title string) (uint32, error) {
	stmt, err := s.prepared(`SELECT id FROM page WHERE title = ?`)
	if err != nil {
		return 0, err
	}
	var id uint32
	if err := stmt.Get(&id, title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("store: indexing %q: %w", title, err)
	}
	return id, nil
}

// Lookup resolves a page's title by its id.
func (s *Store) Lookup(id uint32) (string, error) {
	stmt, err := s.prepared(`SELECT title FROM page WHERE id = ?`)
	if err != nil {
		return "", err
	}
	var title string
	if err := stmt.Get(&title, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("store: looking up %d: %w", id, err)
	}
	return title, nil
}

// SearchResult is one row of a Search match: a page, optionally
// shadowed by a redirect pointing away from it.
type SearchResult struct {
	ID             uint32         `db:"id"`
	Title          string         `db:"title"`
	RedirectTarget sql.NullString `db:"redirect_target"`
}

// Search returns every page whose title matches the SQL LIKE pattern
// (case-insensitive, % and _ wildcards), left-joined against redirect so
// each row also carries its redirect target title, if any.
func (s *Store) Search(pattern string) ([]SearchResult, error) {
	const query = `
		SELECT page.id AS id, page.title AS title, redirect.title AS redirect_target
		FROM page
		LEFT JOIN redirect ON redirect.id = page.id
		WHERE page.title LIKE ? COLLATE NOCASE
	`
	stmt, err := s.prepared(query)
	if err != nil {
		return nil, err
	}
	var results []SearchResult
	if err := stmt.Select(&results, pattern); err != nil {
		return nil, fmt.Errorf("store: searching %q: %w", pattern, err)
	}
	return results, nil
}

// LinksTo returns, sorted ascending, the ids of every page linking to id.
func (s *Store) LinksTo(id uint32) ([]uint32, error) {
	stmt, err := s.prepared("SELECT `from` FROM link WHERE `to` = ? ORDER BY `from` ASC")
	if err != nil {
		return nil, err
	}
	var ids []uint32
	if err := stmt.Select(&ids, id); err != nil {
		return nil, fmt.Errorf("store: links_to %d: %w", id, err)
	}
	return ids, nil
}

// LinksFrom returns, sorted ascending, the ids of every page id links to.
func (s *Store) LinksFrom(id uint32) ([]uint32, error) {
	stmt, err := s.prepared("SELECT `to` FROM link WHERE `from` = ? ORDER BY `to` ASC")
	if err != nil {
		return nil, err
	}
	var ids []uint32
	if err := stmt.Select(&ids, id); err != nil {
		return nil, fmt.Errorf("store: links_from %d: %w", id, err)
	}
	return ids, nil
}

// forwardOracle and reverseOracle adapt a Store to search.NeighborOracle
// without search ever needing to import this package.
type forwardOracle struct{ s *Store }

func (o forwardOracle) Neighbors(id uint32) ([]uint32, error) { return o.s.LinksFrom(id) }

type reverseOracle struct{ s *Store }

func (o reverseOracle) Neighbors(id uint32) ([]uint32, error) { return o.s.LinksTo(id) }

// ForwardOracle exposes outgoing-link adjacency for a bidirectional search.
func (s *Store) ForwardOracle() search.NeighborOracle { return forwardOracle{s} }

// ReverseOracle exposes incoming-link adjacency for a bidirectional search.
func (s *Store) ReverseOracle() search.NeighborOracle { return reverseOracle{s} }

// Path finds a shortest title-to-title path through this store's link
// graph, per spec.md's "path(store, from_title, to_title)" entry point.
// It is a thin wiring of search.PathByTitle over this store's own
// Index/Lookup and oracle pair — see that function for error semantics.
func (s *Store) Path(from, to string) ([]string, error) {
	return search.PathByTitle(s, from, to, s.ForwardOracle(), s.ReverseOracle())
}
