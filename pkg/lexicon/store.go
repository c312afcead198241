package lexicon

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/indology/gocdsl/pkg/translit"
)

// searchCacheSize bounds the memoized search results per store binding.
const searchCacheSize = 4096

// NoLimit disables the result limit of a search.
const NoLimit = -1

// ErrNotConnected is returned by store operations before Connect succeeds.
var ErrNotConnected = errors.New("lexicon: store not connected")

type searchKey struct {
	pattern      string
	scheme       translit.Scheme
	translitKeys bool
	ignoreCase   bool
	limit        int
	offset       int
}

type statsKey struct {
	top          int
	scheme       translit.Scheme
	translitKeys bool
}

// KeyCount pairs a lexicon key with its record frequency.
type KeyCount struct {
	Key   string
	Count int
}

// Stats summarizes a lexicon: record count, distinct key count and the most
// frequent keys.
type Stats struct {
	Total    int
	Distinct int
	Top      []KeyCount
}

// Store is a read-only, key-indexed view over one dictionary's SQLite
// database. It is bound to exactly one backing file at a time and memoizes
// search and stats results until the binding or the scheme policy changes.
//
// All operations run under one mutex, so rebinding and cache invalidation
// are a single atomic step and concurrent readers observe a consistent
// snapshot of one binding.
type Store struct {
	mu        sync.Mutex
	lexiconID string
	shape     Shape
	db        *sql.DB
	path      string
	tr        translit.Func

	searches  *lru.Cache[searchKey, []*Entry]
	statsArgs statsKey
	statsMemo *Stats
}

// NewStore creates an unbound store. tr is the scheme conversion primitive
// applied when entries are rendered; nil keeps everything in the internal
// scheme.
func NewStore(tr translit.Func) *Store {
	cache, _ := lru.New[searchKey, []*Entry](searchCacheSize)
	return &Store{tr: tr, searches: cache}
}

// Connect binds the store to the SQLite file at path, selecting the record
// shape for dictID. Any previous binding is released and all memoized
// results are dropped in the same step, so no cached result computed under
// the old binding can be observed afterwards.
func (s *Store) Connect(path, dictID string) error {
	// mode=ro keeps the archive read-only and refuses to create a missing
	// file, which the default DSN would silently do.
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("open lexicon database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("open lexicon database %s: %w", path, err)
	}

	s.mu.Lock()
	old := s.db
	s.db = db
	s.path = path
	s.lexiconID = strings.ToUpper(dictID)
	s.shape = ShapeFor(dictID)
	s.invalidateLocked()
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Close releases the current binding.
func (s *Store) Close() error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.path = ""
	s.invalidateLocked()
	s.mu.Unlock()

	if db != nil {
		return db.Close()
	}
	return nil
}

// Path returns the file the store is currently bound to.
func (s *Store) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Invalidate drops all memoized search and stats results. It is called
// automatically on rebinds and must be called whenever the scheme policy
// applied to this store changes.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

func (s *Store) invalidateLocked() {
	s.searches.Purge()
	s.statsMemo = nil
	s.statsArgs = statsKey{}
}

// Search matches pattern against the canonical keys of the lexicon and
// returns the matching records as entries rendered for scheme. The pattern
// is in the internal scheme and may contain `*` matching zero or more
// characters. Case-sensitive matches use SQLite GLOB, which understands `*`
// natively; ignore-case matches use LIKE with `*` mapped to `%`.
//
// limit bounds the number of results (NoLimit for all; zero yields none)
// and offset skips that many leading matches. Results follow the store's
// natural row order. The full call is memoized per binding; callers must
// not modify the returned slice.
func (s *Store) Search(pattern string, scheme translit.Scheme, translitKeys, ignoreCase bool, limit, offset int) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotConnected
	}
	if offset < 0 {
		offset = 0
	}

	key := searchKey{pattern, scheme, translitKeys, ignoreCase, limit, offset}
	if hit, ok := s.searches.Get(key); ok {
		return hit, nil
	}

	b := sq.Select(s.shape.IDColumn, s.shape.KeyColumn, s.shape.DataColumn).From(s.shape.Table)
	if ignoreCase {
		b = b.Where(s.shape.KeyColumn+` LIKE ? ESCAPE '\'`, likePattern(pattern))
	} else {
		b = b.Where(s.shape.KeyColumn+" GLOB ?", pattern)
	}
	switch {
	case limit >= 0:
		b = b.Limit(uint64(limit)).Offset(uint64(offset))
	case offset > 0:
		// SQLite requires a LIMIT clause before OFFSET; -1 means unbounded.
		b = b.Suffix("LIMIT -1 OFFSET " + strconv.Itoa(offset))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search %s for %q: %w", s.lexiconID, pattern, err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("search %s for %q: %w", s.lexiconID, pattern, err)
		}
		entries = append(entries, NewEntry(s.lexiconID, rec, s.tr, scheme, translitKeys))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search %s for %q: %w", s.lexiconID, pattern, err)
	}

	s.searches.Add(key, entries)
	return entries, nil
}

// Entry looks a record up by its exact identifier. A miss is not an error:
// it returns nil and logs the missing ID.
func (s *Store) Entry(id string, scheme translit.Scheme, translitKeys bool) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotConnected
	}

	query, args, err := sq.Select(s.shape.IDColumn, s.shape.KeyColumn, s.shape.DataColumn).
		From(s.shape.Table).
		Where(s.shape.IDColumn+" = ?", id).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build entry query: %w", err)
	}

	rec, err := scanRecord(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		slog.Warn("no entry with given id", "lexicon", s.lexiconID, "id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("entry %s of %s: %w", id, s.lexiconID, err)
	}
	return NewEntry(s.lexiconID, rec, s.tr, scheme, translitKeys), nil
}

// Stats reports record and distinct-key counts plus the top most frequent
// keys, rendered in scheme when key transliteration applies. The result is
// memoized for the last argument set only.
func (s *Store) Stats(top int, scheme translit.Scheme, translitKeys bool) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotConnected
	}

	k := statsKey{top, scheme, translitKeys}
	if s.statsMemo != nil && s.statsArgs == k {
		return s.statsMemo, nil
	}

	st := &Stats{}

	query, args, err := sq.Select("COUNT(*)").From(s.shape.Table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}
	if err := s.db.QueryRow(query, args...).Scan(&st.Total); err != nil {
		return nil, fmt.Errorf("stats of %s: %w", s.lexiconID, err)
	}

	query, args, err = sq.Select("COUNT(DISTINCT " + s.shape.KeyColumn + ")").From(s.shape.Table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}
	if err := s.db.QueryRow(query, args...).Scan(&st.Distinct); err != nil {
		return nil, fmt.Errorf("stats of %s: %w", s.lexiconID, err)
	}

	query, args, err = sq.Select(s.shape.KeyColumn, "COUNT("+s.shape.KeyColumn+") AS cnt").
		From(s.shape.Table).
		GroupBy(s.shape.KeyColumn).
		OrderBy("cnt DESC").
		Limit(uint64(top)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("stats of %s: %w", s.lexiconID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var kc KeyCount
		if err := rows.Scan(&kc.Key, &kc.Count); err != nil {
			return nil, fmt.Errorf("stats of %s: %w", s.lexiconID, err)
		}
		if translitKeys && scheme != translit.Internal && scheme.Valid() && s.tr != nil {
			kc.Key = s.tr(kc.Key, translit.Internal, scheme)
		}
		st.Top = append(st.Top, kc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats of %s: %w", s.lexiconID, err)
	}

	s.statsMemo = st
	s.statsArgs = k
	return st, nil
}

// Dump materializes every record as a snapshot rendered for scheme. When
// path is non-empty the snapshots are additionally written there as a JSON
// array in UTF-8 with non-ASCII characters kept literal. The in-memory
// sequence is returned either way.
func (s *Store) Dump(path string, scheme translit.Scheme, translitKeys bool) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNotConnected
	}

	query, args, err := sq.Select(s.shape.IDColumn, s.shape.KeyColumn, s.shape.DataColumn).
		From(s.shape.Table).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dump query: %w", err)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("dump %s: %w", s.lexiconID, err)
	}
	defer rows.Close()

	snaps := []Snapshot{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("dump %s: %w", s.lexiconID, err)
		}
		snaps = append(snaps, NewEntry(s.lexiconID, rec, s.tr, scheme, translitKeys).Snapshot())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dump %s: %w", s.lexiconID, err)
	}

	if path != "" {
		if err := writeJSON(path, snaps); err != nil {
			return nil, err
		}
	}
	return snaps, nil
}

func writeJSON(path string, snaps []Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snaps); err != nil {
		f.Close()
		return fmt.Errorf("write dump: %w", err)
	}
	return f.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one lnum/key/data row. The identifier column is
// dynamically typed in CDSL databases, so it is scanned loosely and
// re-rendered as an exact decimal string.
func scanRecord(sc scanner) (Record, error) {
	var id any
	var key, data sql.NullString
	if err := sc.Scan(&id, &key, &data); err != nil {
		return Record{}, err
	}
	return Record{ID: formatID(id), Key: key.String, Data: data.String}, nil
}

func formatID(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// likePattern rewrites a user-facing wildcard pattern for SQL LIKE:
// `*` becomes `%` and literal LIKE metacharacters are escaped.
func likePattern(pattern string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(pattern)
	return strings.ReplaceAll(escaped, "*", "%")
}
