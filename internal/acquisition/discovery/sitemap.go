package discovery

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/cortexmap/cortex/internal/acquisition/fetch"
)

const (
	maxSitemapDepth = 3    // index -> index -> urlset, guards against cycles
	maxSitemapURLs  = 5000 // bounded window; never materialize an unbounded set
)

// SitemapEntry is one discovered <url> (or, inside a sitemap index, one
// <sitemap>) with its ranking signal.
type SitemapEntry struct {
	Loc      string
	Priority float64 // defaults to 0.5 per the sitemap protocol
}

// FetchSitemaps resolves and stream-parses every sitemap URL (following
// index recursion, decompressing gzip transparently), returning a
// deduplicated, bounded set of entries.
func FetchSitemaps(ctx context.Context, f *fetch.Fetcher, roots []string) []SitemapEntry {
	seen := make(map[string]bool)
	var out []SitemapEntry

	var walk func(url string, depth int)
	walk = func(url string, depth int) {
		if depth > maxSitemapDepth || seen[url] || len(out) >= maxSitemapURLs {
			return
		}
		seen[url] = true

		outcome := f.Fetch(ctx, url, false)
		if !outcome.OK() {
			return
		}
		body := maybeGunzip(url, outcome.Body)

		kind, locs := parseSitemapStream(body)
		switch kind {
		case sitemapKindIndex:
			for _, loc := range locs {
				if len(out) >= maxSitemapURLs {
					return
				}
				walk(loc.Loc, depth+1)
			}
		case sitemapKindURLSet:
			for _, e := range locs {
				if len(out) >= maxSitemapURLs {
					return
				}
				out = append(out, e)
			}
		}
	}

	for _, root := range roots {
		walk(root, 0)
	}
	return out
}

func maybeGunzip(url string, body []byte) []byte {
	if !strings.HasSuffix(url, ".gz") && !(len(body) > 2 && body[0] == 0x1f && body[1] == 0x8b) {
		return body
	}
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	defer r.Close()
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decompressed
}

type sitemapKind int

const (
	sitemapKindUnknown sitemapKind = iota
	sitemapKindIndex
	sitemapKindURLSet
)

// parseSitemapStream reads a sitemapindex or urlset document using a
// streaming xml.Decoder so that multi-hundred-thousand-URL sitemaps
// never fully materialize as a DOM tree in memory.
func parseSitemapStream(body []byte) (sitemapKind, []SitemapEntry) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false

	var kind sitemapKind
	var entries []SitemapEntry
	var curLoc string
	var curPriority float64
	var inEntry bool

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name.Local) {
			case "sitemapindex":
				kind = sitemapKindIndex
			case "urlset":
				kind = sitemapKindURLSet
			case "sitemap", "url":
				inEntry = true
				curLoc = ""
				curPriority = 0.5
			case "loc":
				if inEntry {
					var text string
					dec.DecodeElement(&text, &t)
					curLoc = strings.TrimSpace(text)
				}
			case "priority":
				if inEntry {
					var text string
					dec.DecodeElement(&text, &t)
					curPriority = parsePriority(text)
				}
			}
		case xml.EndElement:
			switch localName(t.Name.Local) {
			case "sitemap", "url":
				if curLoc != "" {
					entries = append(entries, SitemapEntry{Loc: curLoc, Priority: curPriority})
				}
				inEntry = false
			}
		}
		if len(entries) >= maxSitemapURLs {
			break
		}
	}

	if kind == sitemapKindUnknown && len(entries) > 0 {
		kind = sitemapKindURLSet
	}
	return kind, entries
}

func parsePriority(s string) float64 {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || p < 0 || p > 1 {
		return 0.5
	}
	return p
}

func localName(name string) string {
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
