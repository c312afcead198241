package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// DictInfo is one catalog row of the lexicon archive: a dictionary
// available for download.
type DictInfo struct {
	ID   string
	Date string
	Name string
	URL  string
}

// Catalog fetches the archive's listing page and returns every dictionary
// it advertises.
func (c *Client) Catalog(ctx context.Context, serverURL string) ([]DictInfo, error) {
	body, err := c.get(ctx, serverURL)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer body.Close()
	return ParseCatalog(body, serverURL)
}

// ParseCatalog extracts dictionary listings from the archive's homepage
// markup. Each listing is a table row of four cells (identifier, date,
// display name with a detail link, a Downloads link); rows that do not
// match that shape are skipped with a diagnostic.
func ParseCatalog(r io.Reader, baseURL string) ([]DictInfo, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse catalog page: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse catalog base url: %w", err)
	}

	downloads := findAll(doc, func(n *html.Node) bool {
		return isElement(n, "a") && attr(n, "title") == "Downloads"
	})

	var infos []DictInfo
	for _, dl := range downloads {
		row := ancestor(dl, "tr")
		if row == nil {
			continue
		}
		cells := findAll(row, func(n *html.Node) bool { return isElement(n, "td") })
		if len(cells) != 4 {
			slog.Warn("skipping malformed catalog row", "cells", len(cells))
			continue
		}

		id := firstField(nodeText(cells[0]))
		date := firstField(nodeText(cells[1]))
		nameLink := find(cells[2], func(n *html.Node) bool { return isElement(n, "a") })
		if id == "" || nameLink == nil {
			slog.Warn("skipping malformed catalog row", "id", id)
			continue
		}

		href, err := url.Parse(attr(dl, "href"))
		if err != nil {
			slog.Warn("skipping catalog row with bad link", "id", id, "err", err)
			continue
		}

		infos = append(infos, DictInfo{
			ID:   id,
			Date: date,
			Name: nodeText(nameLink),
			URL:  base.ResolveReference(href).String(),
		})
	}
	return infos, nil
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
