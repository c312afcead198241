// Package corpus aggregates dictionary handles: it discovers the archive's
// catalog, sets dictionaries up locally and fans searches out across them.
package corpus

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/indology/gocdsl/pkg/fetch"
	"github.com/indology/gocdsl/pkg/lexicon"
	"github.com/indology/gocdsl/pkg/translit"
)

// ServerURL is the home of the Cologne Digital Sanskrit Lexicon archive.
const ServerURL = "https://www.sanskrit-lexicon.uni-koeln.de"

// DefaultDictionaries are set up when no explicit selection is given.
var DefaultDictionaries = []string{"MW", "AP90", "MWE", "AE"}

// EnglishDictionaries have English lookup keys, which are not
// transliterable; key transliteration is disabled for them.
var EnglishDictionaries = []string{"MWE", "BOR", "AE"}

// DefaultDataDir is the per-user corpus location, ~/cdsl_data.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cdsl_data"
	}
	return filepath.Join(home, "cdsl_data")
}

// Options configures a corpus. Start from DefaultOptions and override.
type Options struct {
	DataDir           string
	ServerURL         string
	InputScheme       translit.Scheme
	OutputScheme      translit.Scheme
	TransliterateKeys bool
	// SetupConcurrency bounds parallel dictionary setups.
	SetupConcurrency int
	// Fetcher acquires dictionary archives; the catalog client when nil.
	Fetcher fetch.Fetcher
	// Client fetches the catalog page; fetch.NewClient() when nil.
	Client *fetch.Client
	// Translit is the scheme conversion primitive handed to every handle.
	Translit translit.Func
}

// DefaultOptions returns the stock corpus configuration.
func DefaultOptions() Options {
	return Options{
		DataDir:           DefaultDataDir(),
		ServerURL:         ServerURL,
		InputScheme:       translit.Default,
		OutputScheme:      translit.Default,
		TransliterateKeys: true,
		SetupConcurrency:  4,
	}
}

// Corpus is a local CDSL installation: the catalog of obtainable
// dictionaries plus the handles bound to locally present data.
type Corpus struct {
	dataDir string
	dictDir string
	dbDir   string

	serverURL         string
	inputScheme       translit.Scheme
	outputScheme      translit.Scheme
	transliterateKeys bool
	concurrency       int

	client  *fetch.Client
	fetcher fetch.Fetcher
	tr      translit.Func

	mu        sync.RWMutex
	available map[string]*lexicon.Dict
	active    map[string]*lexicon.Dict
}

// New creates a corpus rooted at opts.DataDir with the layout
// <DataDir>/dict/<ID>/ for extracted data and <DataDir>/db/ for the stable
// database aliases. The catalog is loaded lazily on first use.
func New(opts Options) *Corpus {
	if opts.DataDir == "" {
		opts.DataDir = DefaultDataDir()
	}
	if opts.ServerURL == "" {
		opts.ServerURL = ServerURL
	}
	if opts.SetupConcurrency <= 0 {
		opts.SetupConcurrency = 1
	}
	if opts.Client == nil {
		opts.Client = fetch.NewClient()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = opts.Client
	}
	return &Corpus{
		dataDir:           opts.DataDir,
		dictDir:           filepath.Join(opts.DataDir, "dict"),
		dbDir:             filepath.Join(opts.DataDir, "db"),
		serverURL:         opts.ServerURL,
		inputScheme:       translit.Or(opts.InputScheme, translit.Default),
		outputScheme:      translit.Or(opts.OutputScheme, translit.Default),
		transliterateKeys: opts.TransliterateKeys,
		concurrency:       opts.SetupConcurrency,
		client:            opts.Client,
		fetcher:           opts.Fetcher,
		tr:                opts.Translit,
		active:            map[string]*lexicon.Dict{},
	}
}

// DataDir returns the corpus root directory.
func (c *Corpus) DataDir() string { return c.dataDir }

// LoadCatalog fetches the archive's listing page and rebuilds the catalog
// of obtainable dictionaries.
func (c *Corpus) LoadCatalog(ctx context.Context) error {
	infos, err := c.client.Catalog(ctx, c.serverURL)
	if err != nil {
		return err
	}

	available := make(map[string]*lexicon.Dict, len(infos))
	for _, info := range infos {
		id := strings.ToUpper(info.ID)
		available[id] = lexicon.NewDict(info, lexicon.DictOptions{
			InputScheme:       c.inputScheme,
			OutputScheme:      c.outputScheme,
			TransliterateKeys: c.transliterateKeys && !isEnglish(id),
			Fetcher:           c.fetcher,
			Translit:          c.tr,
		})
	}

	c.mu.Lock()
	c.available = available
	c.mu.Unlock()
	slog.Info("loaded dictionary catalog", "dictionaries", len(available))
	return nil
}

// ensureCatalog loads the catalog once, lazily.
func (c *Corpus) ensureCatalog(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.available != nil
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.LoadCatalog(ctx)
}

// AvailableIDs lists the catalog's dictionary identifiers, sorted.
func (c *Corpus) AvailableIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedIDs(c.available)
}

// Available looks a dictionary up in the catalog.
func (c *Corpus) Available(id string) (*lexicon.Dict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.available[strings.ToUpper(id)]
	return d, ok
}

// ActiveIDs lists the identifiers of dictionaries bound by Setup, sorted.
func (c *Corpus) ActiveIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedIDs(c.active)
}

// Get looks a bound dictionary up by identifier.
func (c *Corpus) Get(id string) (*lexicon.Dict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.active[strings.ToUpper(id)]
	return d, ok
}

// InstalledIDs lists catalog dictionaries whose SQLite database is already
// present under the corpus data directory.
func (c *Corpus) InstalledIDs() []string {
	entries, err := os.ReadDir(c.dictDir)
	if err != nil {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []string
	for _, e := range entries {
		id := strings.ToUpper(e.Name())
		if c.available != nil {
			if _, ok := c.available[id]; !ok {
				slog.Warn("ignoring unknown dictionary directory", "dict", e.Name())
				continue
			}
		}
		db := filepath.Join(c.dictDir, e.Name(), "web", "sqlite", strings.ToLower(id)+".sqlite")
		if fi, err := os.Stat(db); err == nil && !fi.IsDir() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Setup resolves ids (nil means the default set plus whatever is already
// installed), restricts them to the catalog, and sets each dictionary up,
// binding the successes into the active map. Setups run with bounded
// parallelism. The result is true only when every requested dictionary
// succeeded; an empty effective selection reports false.
func (c *Corpus) Setup(ctx context.Context, ids []string, update bool) bool {
	if err := c.ensureCatalog(ctx); err != nil {
		slog.Error("could not load dictionary catalog", "err", err)
		return false
	}

	if ids == nil {
		ids = append(append([]string{}, DefaultDictionaries...), c.InstalledIDs()...)
	}

	c.mu.RLock()
	want := make(map[string]*lexicon.Dict)
	for _, id := range ids {
		id = strings.ToUpper(id)
		if d, ok := c.available[id]; ok {
			want[id] = d
		} else {
			slog.Warn("dictionary not in catalog", "dict", id)
		}
	}
	c.mu.RUnlock()

	if len(want) == 0 {
		return false
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	var resmu sync.Mutex
	all := true
	for id, d := range want {
		id, d := id, d
		g.Go(func() error {
			ok := d.Setup(ctx, filepath.Join(c.dictDir, id), c.dbDir, update)
			resmu.Lock()
			all = all && ok
			resmu.Unlock()
			if ok {
				c.mu.Lock()
				c.active[id] = d
				c.mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return all
}

// Search fans pattern out across the bound dictionaries (all of them when
// ids is nil) and merges the results by dictionary identifier. Unless
// omitEmpty is false, dictionaries without matches are left out of the
// result map. Per-dictionary failures are logged and skipped, never
// aborting the other dictionaries.
func (c *Corpus) Search(pattern string, ids []string, opts *lexicon.SearchOptions, omitEmpty bool) map[string][]*lexicon.Entry {
	c.mu.RLock()
	dicts := make(map[string]*lexicon.Dict)
	if ids == nil {
		for id, d := range c.active {
			dicts[id] = d
		}
	} else {
		for _, id := range ids {
			id = strings.ToUpper(id)
			if d, ok := c.active[id]; ok {
				dicts[id] = d
			}
		}
	}
	c.mu.RUnlock()

	results := make(map[string][]*lexicon.Entry)
	for id, d := range dicts {
		entries, err := d.Search(pattern, opts)
		if err != nil {
			slog.Error("search failed", "dict", id, "pattern", pattern, "err", err)
			continue
		}
		if !omitEmpty || len(entries) > 0 {
			results[id] = entries
		}
	}
	return results
}

func isEnglish(id string) bool {
	for _, e := range EnglishDictionaries {
		if e == id {
			return true
		}
	}
	return false
}

func sortedIDs(m map[string]*lexicon.Dict) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
