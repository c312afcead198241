// Package fetch talks to the lexicon archive server: it discovers the
// dictionary catalog, reads per-dictionary update stamps and downloads and
// extracts dictionary archives. The rest of the system consumes it through
// the Fetcher interface and only ever sees success or failure.
package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// webDisplaysMarker identifies the list item on a dictionary's download
// page that links to the archive of web displays (which carries the SQLite
// database).
const webDisplaysMarker = "Directory 'web' containing displays"

// Fetcher acquires dictionary data from the archive server.
type Fetcher interface {
	// LastModified reports the server-side update stamp of a dictionary's
	// download page.
	LastModified(ctx context.Context, pageURL string) (string, error)

	// FetchArchive downloads the dictionary's web-display archive linked
	// from pageURL and extracts it into destDir. A previously downloaded
	// archive is restored if the download fails part way.
	FetchArchive(ctx context.Context, pageURL, destDir string) error
}

// Client is the HTTP implementation of Fetcher.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
}

var _ Fetcher = (*Client)(nil)

// NewClient returns a Client with a sensible timeout. Archive downloads can
// run tens of megabytes, hence the generous limit.
func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
		UserAgent:  "gocdsl",
	}
}

func (c *Client) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", rawURL, resp.Status)
	}
	return resp.Body, nil
}

func (c *Client) page(ctx context.Context, rawURL string) (*html.Node, error) {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return html.Parse(body)
}

// LastModified reads the "last updated" stamp from the footer of a
// dictionary's download page.
func (c *Client) LastModified(ctx context.Context, pageURL string) (string, error) {
	doc, err := c.page(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	footer := find(doc, func(n *html.Node) bool {
		return isElement(n, "div") && attr(n, "id") == "footer"
	})
	if footer == nil {
		return "", fmt.Errorf("fetch %s: no footer on download page", pageURL)
	}
	p := find(footer, func(n *html.Node) bool { return isElement(n, "p") })
	if p == nil {
		return "", fmt.Errorf("fetch %s: no update stamp on download page", pageURL)
	}

	// Footer text reads like "Last updated: <stamp>".
	text := nodeText(p)
	if i := strings.Index(text, ":"); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimSpace(text), nil
}

// FetchArchive downloads and extracts the web-display archive for one
// dictionary. The previous archive, if any, is kept as a backup until the
// new download succeeds and is restored when it does not.
func (c *Client) FetchArchive(ctx context.Context, pageURL, destDir string) error {
	doc, err := c.page(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	archiveURL, err := webArchiveURL(doc, pageURL)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}

	archivePath := filepath.Join(destDir, archiveName(archiveURL))
	backupPath := archivePath + ".bak"
	hasBackup := false
	if _, err := os.Stat(archivePath); err == nil {
		if err := os.Rename(archivePath, backupPath); err != nil {
			return fmt.Errorf("back up previous archive: %w", err)
		}
		hasBackup = true
	}

	if err := c.download(ctx, archiveURL, archivePath); err != nil {
		if hasBackup {
			slog.Debug("restoring previous archive", "path", archivePath)
			if rerr := os.Rename(backupPath, archivePath); rerr != nil {
				slog.Warn("could not restore previous archive", "path", archivePath, "err", rerr)
			}
		}
		return err
	}
	if hasBackup {
		os.Remove(backupPath)
	}

	if err := extractZip(archivePath, destDir); err != nil {
		return err
	}
	return nil
}

// webArchiveURL locates the download link for the 'web' displays directory
// on a dictionary page and resolves it against the page URL.
func webArchiveURL(doc *html.Node, pageURL string) (string, error) {
	for _, li := range findAll(doc, func(n *html.Node) bool { return isElement(n, "li") }) {
		if !strings.Contains(nodeText(li), webDisplaysMarker) {
			continue
		}
		a := find(li, func(n *html.Node) bool { return isElement(n, "a") })
		if a == nil {
			continue
		}
		base, err := url.Parse(pageURL)
		if err != nil {
			return "", fmt.Errorf("parse page url %s: %w", pageURL, err)
		}
		href, err := url.Parse(attr(a, "href"))
		if err != nil {
			return "", fmt.Errorf("parse archive link: %w", err)
		}
		return base.ResolveReference(href).String(), nil
	}
	return "", fmt.Errorf("no download link for 'web' displays on %s", pageURL)
}

func archiveName(archiveURL string) string {
	if u, err := url.Parse(archiveURL); err == nil {
		if name := path.Base(u.Path); name != "." && name != "/" && name != "" {
			return name
		}
	}
	return "web.zip"
}

func (c *Client) download(ctx context.Context, rawURL, destPath string) error {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer body.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(destPath)
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	return f.Close()
}

// extractZip unpacks archivePath into destDir, refusing entries that would
// escape it.
func extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		target := filepath.Join(destDir, filepath.FromSlash(zf.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", zf.Name)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("extract %s: %w", zf.Name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("extract %s: %w", zf.Name, err)
		}
		if err := extractFile(zf, target); err != nil {
			return fmt.Errorf("extract %s: %w", zf.Name, err)
		}
	}
	return nil
}

func extractFile(zf *zip.File, target string) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
