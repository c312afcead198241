package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func downloadPage(archiveHref string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><body>
<ul>
  <li><a href="other.zip">Directory 'orig' containing scans</a></li>
  <li><a href="%s">Directory 'web' containing displays</a></li>
</ul>
<div id="footer"><p>Last updated: Thu 02 May 2024 10:33 AM</p></div>
</body></html>`, archiveHref)
}

// zipArchive builds an in-memory zip with the given name/content pairs.
func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// archiveServer serves a download page and its web-display archive.
func archiveServer(t *testing.T, archive []byte, failDownload bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/web/webtc/download.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, downloadPage("../mw.zip"))
	})
	mux.HandleFunc("/web/mw.zip", func(w http.ResponseWriter, r *http.Request) {
		if failDownload {
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLastModified(t *testing.T) {
	srv := archiveServer(t, nil, false)
	c := NewClient()

	stamp, err := c.LastModified(context.Background(), srv.URL+"/web/webtc/download.html")
	require.NoError(t, err)
	assert.Equal(t, "Thu 02 May 2024 10:33 AM", stamp)
}

func TestLastModifiedNoFooter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>nothing here</body></html>")
	}))
	defer srv.Close()

	_, err := NewClient().LastModified(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "no footer")
}

func TestFetchArchive(t *testing.T) {
	archive := zipArchive(t, map[string]string{
		"web/sqlite/mw.sqlite": "sqlite-bytes",
		"web/index.html":       "<html/>",
	})
	srv := archiveServer(t, archive, false)
	destDir := t.TempDir()

	err := NewClient().FetchArchive(context.Background(), srv.URL+"/web/webtc/download.html", destDir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(destDir, "web", "sqlite", "mw.sqlite"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite-bytes", string(data))

	// The archive itself stays next to the extraction.
	_, err = os.Stat(filepath.Join(destDir, "mw.zip"))
	assert.NoError(t, err)
}

func TestFetchArchiveRestoresBackupOnFailure(t *testing.T) {
	srv := archiveServer(t, nil, true)
	destDir := t.TempDir()

	previous := []byte("previous archive")
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "mw.zip"), previous, 0o644))

	err := NewClient().FetchArchive(context.Background(), srv.URL+"/web/webtc/download.html", destDir)
	require.Error(t, err)

	// The failed download leaves the previous archive in place.
	data, err := os.ReadFile(filepath.Join(destDir, "mw.zip"))
	require.NoError(t, err)
	assert.Equal(t, previous, data)
	_, err = os.Stat(filepath.Join(destDir, "mw.zip.bak"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetchArchiveNoWebLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><ul><li>no links</li></ul></body></html>")
	}))
	defer srv.Close()

	err := NewClient().FetchArchive(context.Background(), srv.URL, t.TempDir())
	assert.ErrorContains(t, err, "no download link")
}

func TestExtractZipRejectsEscapingEntries(t *testing.T) {
	archive := zipArchive(t, map[string]string{"../escape.txt": "x"})
	path := filepath.Join(t.TempDir(), "evil.zip")
	require.NoError(t, os.WriteFile(path, archive, 0o644))

	err := extractZip(path, t.TempDir())
	assert.ErrorContains(t, err, "escapes destination")
}

func TestCatalogOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, catalogPage)
	}))
	defer srv.Close()

	infos, err := NewClient().Catalog(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "MW", infos[0].ID)
	assert.Equal(t, srv.URL+"/MWScan/2020/web/webtc/download.html", infos[0].URL)
}

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "mw.zip", archiveName("https://example.org/a/mw.zip"))
	assert.Equal(t, "web.zip", archiveName("https://example.org/"))
}
