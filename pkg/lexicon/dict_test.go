package lexicon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indology/gocdsl/pkg/fetch"
	"github.com/indology/gocdsl/pkg/translit"
)

// dictTr maps the long-a vowel between iast and the internal scheme, enough
// of a conversion primitive to observe scheme handling end to end.
func dictTr(text string, from, to translit.Scheme) string {
	switch {
	case from == translit.IAST && to == translit.Internal:
		return strings.ReplaceAll(text, "ā", "A")
	case from == translit.Internal && to == translit.IAST:
		return strings.ReplaceAll(text, "A", "ā")
	}
	return text
}

// fakeFetcher materializes the fixture database instead of talking to a
// server.
type fakeFetcher struct {
	t        *testing.T
	stamp    string
	rows     [][3]any
	stampErr error
	fetchErr error

	stampCalls int
	fetchCalls int
}

var _ fetch.Fetcher = (*fakeFetcher)(nil)

func (f *fakeFetcher) LastModified(ctx context.Context, pageURL string) (string, error) {
	f.stampCalls++
	if f.stampErr != nil {
		return "", f.stampErr
	}
	return f.stamp, nil
}

func (f *fakeFetcher) FetchArchive(ctx context.Context, pageURL, destDir string) error {
	f.fetchCalls++
	if f.fetchErr != nil {
		return f.fetchErr
	}
	dir := filepath.Join(destDir, "web", "sqlite")
	require.NoError(f.t, os.MkdirAll(dir, 0o755))
	writeFixtureDB(f.t, filepath.Join(dir, "mw.sqlite"), f.rows)
	return nil
}

func testDictInfo() fetch.DictInfo {
	return fetch.DictInfo{
		ID:   "MW",
		Date: "1899",
		Name: "Monier-Williams Sanskrit-English Dictionary",
		URL:  "https://example.org/MWScan/2020/web/index.php",
	}
}

func newTestDict(t *testing.T, f *fakeFetcher) *Dict {
	t.Helper()
	return NewDict(testDictInfo(), DictOptions{
		TransliterateKeys: true,
		Fetcher:           f,
		Translit:          dictTr,
	})
}

func TestDictString(t *testing.T) {
	d := newTestDict(t, &fakeFetcher{t: t})
	assert.Equal(t, "MW (1899): Monier-Williams Sanskrit-English Dictionary", d.String())
}

func TestSetupDownloadsAndBinds(t *testing.T) {
	f := &fakeFetcher{t: t, stamp: "2024-01-02", rows: defaultRows()}
	d := newTestDict(t, f)
	dataDir := t.TempDir()
	symlinkDir := t.TempDir()

	ok := d.Setup(context.Background(), dataDir, symlinkDir, false)
	require.True(t, ok)
	assert.Equal(t, 1, f.fetchCalls)

	// The store binds through the stable alias.
	assert.Equal(t, filepath.Join(symlinkDir, "MW.db"), d.DBPath())
	target, err := os.Readlink(d.DBPath())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "web", "sqlite", "mw.sqlite"), target)

	// The update stamp is recorded next to the data.
	marker, err := os.ReadFile(filepath.Join(dataDir, "last_modified.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", string(marker))

	entries, err := d.Search("rA*", nil)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestSetupWithoutSymlinkDir(t *testing.T) {
	f := &fakeFetcher{t: t, stamp: "s", rows: defaultRows()}
	d := newTestDict(t, f)
	dataDir := t.TempDir()

	require.True(t, d.Setup(context.Background(), dataDir, "", false))
	assert.Equal(t, filepath.Join(dataDir, "web", "sqlite", "mw.sqlite"), d.DBPath())
}

func TestSetupReusesLocalData(t *testing.T) {
	f := &fakeFetcher{t: t, stamp: "s", rows: defaultRows()}
	d := newTestDict(t, f)
	dataDir := t.TempDir()

	dir := filepath.Join(dataDir, "web", "sqlite")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeFixtureDB(t, filepath.Join(dir, "mw.sqlite"), defaultRows())

	require.True(t, d.Setup(context.Background(), dataDir, "", false))
	assert.Zero(t, f.stampCalls)
	assert.Zero(t, f.fetchCalls)
}

func TestSetupUpdateSkipsCurrentData(t *testing.T) {
	f := &fakeFetcher{t: t, stamp: "2024-01-02", rows: defaultRows()}
	d := newTestDict(t, f)
	dataDir := t.TempDir()

	dir := filepath.Join(dataDir, "web", "sqlite")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeFixtureDB(t, filepath.Join(dir, "mw.sqlite"), defaultRows())
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "last_modified.txt"), []byte("2024-01-02"), 0o644))

	require.True(t, d.Setup(context.Background(), dataDir, "", true))
	assert.Equal(t, 1, f.stampCalls)
	assert.Zero(t, f.fetchCalls)
}

func TestSetupFailureKeepsPreviousBinding(t *testing.T) {
	f := &fakeFetcher{t: t, stamp: "s", rows: defaultRows()}
	d := newTestDict(t, f)
	dataDir := t.TempDir()

	require.True(t, d.Setup(context.Background(), dataDir, "", false))

	f.stampErr = assert.AnError
	ok := d.Setup(context.Background(), t.TempDir(), "", true)
	assert.False(t, ok)

	// The handle still serves from the earlier binding.
	entries, err := d.Search("agni", nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, filepath.Join(dataDir, "web", "sqlite", "mw.sqlite"), d.DBPath())
}

func TestDownloadFailure(t *testing.T) {
	f := &fakeFetcher{t: t, stamp: "s", fetchErr: assert.AnError}
	d := newTestDict(t, f)

	assert.False(t, d.Download(context.Background(), t.TempDir()))
	assert.Equal(t, 1, f.fetchCalls)
}

func TestSearchConvertsInputScheme(t *testing.T) {
	f := &fakeFetcher{t: t, stamp: "s", rows: defaultRows()}
	d := newTestDict(t, f)
	require.True(t, d.Setup(context.Background(), t.TempDir(), "", false))

	opts := DefaultSearchOptions()
	opts.InputScheme = translit.IAST
	opts.OutputScheme = translit.IAST

	entries, err := d.Search("rā*", &opts)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "rāma", entries[0].Key())
	assert.Equal(t, translit.IAST, entries[0].Scheme())
}

func TestSetSchemeChangesDefaults(t *testing.T) {
	f := &fakeFetcher{t: t, stamp: "s", rows: defaultRows()}
	d := newTestDict(t, f)
	require.True(t, d.Setup(context.Background(), t.TempDir(), "", false))

	d.SetScheme(translit.IAST, translit.IAST, true)
	assert.Equal(t, translit.IAST, d.InputScheme())
	assert.Equal(t, translit.IAST, d.OutputScheme())

	entries, err := d.Search("rā*", nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "rāma", entries[0].Key())
}

func TestSetSchemeInvalidatesMemoizedResults(t *testing.T) {
	f := &fakeFetcher{t: t, stamp: "s", rows: defaultRows()}
	d := newTestDict(t, f)
	require.True(t, d.Setup(context.Background(), t.TempDir(), "", false))

	first, err := d.Search("rAma", nil)
	require.NoError(t, err)
	memo, err := d.Search("rAma", nil)
	require.NoError(t, err)
	require.Same(t, first[0], memo[0])

	d.SetScheme(translit.Internal, translit.Internal, false)
	fresh, err := d.Search("rAma", nil)
	require.NoError(t, err)
	assert.NotSame(t, first[0], fresh[0])

	// Re-setting the same policy keeps the cache warm.
	d.SetScheme(translit.Internal, translit.Internal, false)
	again, err := d.Search("rAma", nil)
	require.NoError(t, err)
	assert.Same(t, fresh[0], again[0])
}

func TestSetSchemeFallsBackToInternal(t *testing.T) {
	d := newTestDict(t, &fakeFetcher{t: t})
	d.SetScheme("klingon", "", true)
	assert.Equal(t, translit.Internal, d.InputScheme())
	assert.Equal(t, translit.Internal, d.OutputScheme())
}

func TestDictEntryAndStats(t *testing.T) {
	f := &fakeFetcher{t: t, stamp: "s", rows: defaultRows()}
	d := newTestDict(t, f)
	require.True(t, d.Setup(context.Background(), t.TempDir(), "", false))

	e, err := d.Entry("1", translit.IAST)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "rāma", e.Key())

	st, err := d.Stats(0, "")
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 3, st.Distinct)
}

func TestConnectBeforeSetup(t *testing.T) {
	d := newTestDict(t, &fakeFetcher{t: t})
	assert.Error(t, d.Connect())
}
