// Package lexicon provides transliteration-aware access to one CDSL
// dictionary: its records, rendered entries, the SQLite-backed store and
// the dictionary handle tying them to the archive server.
package lexicon

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/indology/gocdsl/pkg/fetch"
	"github.com/indology/gocdsl/pkg/translit"
)

// markerFile persists the server-side update stamp of the last successful
// download inside a dictionary's data directory.
const markerFile = "last_modified.txt"

// SearchOptions tunes a dictionary search. Zero-valued schemes fall back to
// the handle's configured defaults. Limit bounds the number of results;
// use NoLimit for all of them (a zero limit returns none).
type SearchOptions struct {
	InputScheme  translit.Scheme
	OutputScheme translit.Scheme
	IgnoreCase   bool
	Limit        int
	Offset       int
}

// DefaultSearchOptions returns options with no result limit.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Limit: NoLimit}
}

// DictOptions configures a dictionary handle.
type DictOptions struct {
	InputScheme  translit.Scheme
	OutputScheme translit.Scheme
	// TransliterateKeys controls whether lookup keys are converted to the
	// output scheme. Disabled for dictionaries whose keys are English.
	TransliterateKeys bool
	// Fetcher acquires archive data; NewClient() when nil.
	Fetcher fetch.Fetcher
	// Translit is the scheme conversion primitive; nil keeps all rendering
	// in the internal scheme.
	Translit translit.Func
}

// Dict is a handle to one dictionary of the corpus: catalog metadata plus
// the bound lexicon store and the handle's transliteration policy.
type Dict struct {
	ID   string
	Date string
	Name string
	URL  string

	mu           sync.Mutex
	inputScheme  translit.Scheme
	outputScheme translit.Scheme
	translitKeys bool
	dbPath       string

	store   *Store
	fetcher fetch.Fetcher
	tr      translit.Func
}

// NewDict builds a handle from a catalog row. The handle is not bound to
// local data until Setup succeeds.
func NewDict(info fetch.DictInfo, opts DictOptions) *Dict {
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = fetch.NewClient()
	}
	d := &Dict{
		ID:           strings.ToUpper(info.ID),
		Date:         info.Date,
		Name:         info.Name,
		URL:          info.URL,
		inputScheme:  translit.Or(opts.InputScheme, translit.Internal),
		outputScheme: translit.Or(opts.OutputScheme, translit.Internal),
		translitKeys: opts.TransliterateKeys,
		fetcher:      fetcher,
		tr:           opts.Translit,
	}
	d.store = NewStore(d.tr)
	return d
}

func (d *Dict) String() string {
	return fmt.Sprintf("%s (%s): %s", d.ID, d.Date, d.Name)
}

// InputScheme returns the configured default input scheme.
func (d *Dict) InputScheme() translit.Scheme {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inputScheme
}

// OutputScheme returns the configured default output scheme.
func (d *Dict) OutputScheme() translit.Scheme {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outputScheme
}

// TransliterateKeys reports whether lookup keys are converted to the output
// scheme.
func (d *Dict) TransliterateKeys() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.translitKeys
}

// DBPath returns the path the handle's store is bound to, empty before a
// successful Setup.
func (d *Dict) DBPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dbPath
}

// SetScheme updates the handle's transliteration policy. Empty or unknown
// schemes fall back to the internal scheme. Any effective change drops the
// store's memoized results.
func (d *Dict) SetScheme(input, output translit.Scheme, translitKeys bool) {
	input = translit.Or(input, translit.Internal)
	output = translit.Or(output, translit.Internal)

	d.mu.Lock()
	changed := input != d.inputScheme ||
		output != d.outputScheme ||
		translitKeys != d.translitKeys
	d.inputScheme = input
	d.outputScheme = output
	d.translitKeys = translitKeys
	d.mu.Unlock()

	if changed {
		d.store.Invalidate()
	}
}

// Setup materializes the dictionary's local data under dataDir and binds
// the store to it. Existing local data is reused unless update is true.
// When symlinkDir is non-empty a stable alias <symlinkDir>/<ID>.db is
// pointed at the SQLite file and the store binds through the alias, so
// consumers are independent of versioned subdirectories. Failures are
// logged and reported as false, leaving any previous binding usable.
func (d *Dict) Setup(ctx context.Context, dataDir, symlinkDir string, update bool) bool {
	dbPath := filepath.Join(dataDir, "web", "sqlite", strings.ToLower(d.ID)+".sqlite")

	ok := (!update && fileExists(dbPath)) || d.Download(ctx, dataDir)
	if !ok {
		slog.Error("could not set up dictionary", "dict", d.ID)
		return false
	}

	bind := dbPath
	if symlinkDir != "" {
		link, err := aliasPath(dbPath, symlinkDir, d.ID)
		if err != nil {
			slog.Error("could not alias dictionary database", "dict", d.ID, "err", err)
			return false
		}
		bind = link
	}

	if err := d.store.Connect(bind, d.ID); err != nil {
		slog.Error("could not bind dictionary store", "dict", d.ID, "err", err)
		return false
	}

	d.mu.Lock()
	d.dbPath = bind
	d.mu.Unlock()
	return true
}

// Download refreshes the dictionary data under dir when the server-side
// update stamp differs from the locally recorded one. It reports true when
// the data is present and current.
func (d *Dict) Download(ctx context.Context, dir string) bool {
	stamp, err := d.fetcher.LastModified(ctx, d.URL)
	if err != nil {
		slog.Error("could not check dictionary update stamp", "dict", d.ID, "err", err)
		return false
	}
	slog.Debug("dictionary update stamp", "dict", d.ID, "stamp", stamp)

	marker := filepath.Join(dir, markerFile)
	if prev, err := os.ReadFile(marker); err == nil && strings.TrimSpace(string(prev)) == stamp {
		slog.Info("dictionary data is up-to-date", "dict", d.ID)
		return true
	}

	if err := d.fetcher.FetchArchive(ctx, d.URL, dir); err != nil {
		slog.Error("could not download dictionary", "dict", d.ID, "err", err)
		return false
	}
	if err := os.WriteFile(marker, []byte(stamp), 0o644); err != nil {
		slog.Warn("could not record dictionary update stamp", "dict", d.ID, "err", err)
	}
	return true
}

// Connect rebinds the store to the handle's current database path.
func (d *Dict) Connect() error {
	d.mu.Lock()
	path := d.dbPath
	d.mu.Unlock()
	if path == "" {
		return fmt.Errorf("dictionary %s is not set up", d.ID)
	}
	return d.store.Connect(path, d.ID)
}

// Search converts pattern from the effective input scheme to the internal
// scheme (wildcards pass through the conversion untouched) and matches it
// against the stored canonical keys. Results are entries rendered for the
// effective output scheme under the handle's key policy.
func (d *Dict) Search(pattern string, opts *SearchOptions) ([]*Entry, error) {
	o := DefaultSearchOptions()
	if opts != nil {
		o = *opts
	}

	d.mu.Lock()
	in := translit.Or(o.InputScheme, d.inputScheme)
	out := translit.Or(o.OutputScheme, d.outputScheme)
	keys := d.translitKeys
	d.mu.Unlock()

	canonical := pattern
	if in != translit.Internal && d.tr != nil {
		canonical = d.tr(pattern, in, translit.Internal)
	}
	return d.store.Search(canonical, out, keys, o.IgnoreCase, o.Limit, o.Offset)
}

// Entry looks a record up by its exact identifier, rendered for the
// effective output scheme. A miss returns nil without an error.
func (d *Dict) Entry(id string, outputScheme translit.Scheme) (*Entry, error) {
	d.mu.Lock()
	out := translit.Or(outputScheme, d.outputScheme)
	keys := d.translitKeys
	d.mu.Unlock()
	return d.store.Entry(id, out, keys)
}

// Stats summarizes the lexicon. top defaults to 10 when non-positive.
func (d *Dict) Stats(top int, outputScheme translit.Scheme) (*Stats, error) {
	if top <= 0 {
		top = 10
	}
	d.mu.Lock()
	out := translit.Or(outputScheme, d.outputScheme)
	keys := d.translitKeys
	d.mu.Unlock()
	return d.store.Stats(top, out, keys)
}

// Dump materializes every record as a serializable snapshot; see
// Store.Dump.
func (d *Dict) Dump(path string, outputScheme translit.Scheme) ([]Snapshot, error) {
	d.mu.Lock()
	out := translit.Or(outputScheme, d.outputScheme)
	keys := d.translitKeys
	d.mu.Unlock()
	return d.store.Dump(path, out, keys)
}

// Store exposes the bound lexicon store.
func (d *Dict) Store() *Store {
	return d.store
}

// aliasPath ensures <symlinkDir>/<ID>.db points at dbPath and returns the
// alias. An existing alias is left in place.
func aliasPath(dbPath, symlinkDir, id string) (string, error) {
	if err := os.MkdirAll(symlinkDir, 0o755); err != nil {
		return "", err
	}
	link := filepath.Join(symlinkDir, id+".db")
	if _, err := os.Lstat(link); errors.Is(err, fs.ErrNotExist) {
		abs, err := filepath.Abs(dbPath)
		if err != nil {
			return "", err
		}
		if err := os.Symlink(abs, link); err != nil {
			return "", err
		}
	}
	return link, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
