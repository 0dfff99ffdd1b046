package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSitemapURLSet(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc><priority>1.0</priority></url>
  <url><loc>https://example.com/about</loc><priority>0.5</priority></url>
  <url><loc>https://example.com/a1</loc></url>
</urlset>`)

	kind, entries := parseSitemapStream(body)
	require.Equal(t, sitemapKindURLSet, kind)
	require.Len(t, entries, 3)
	assert.Equal(t, "https://example.com/", entries[0].Loc)
	assert.InDelta(t, 1.0, entries[0].Priority, 0.001)
	assert.InDelta(t, 0.5, entries[1].Priority, 0.001)
	assert.InDelta(t, 0.5, entries[2].Priority, 0.001) // default when omitted
}

func TestParseSitemapIndex(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-1.xml</loc></sitemap>
  <sitemap><loc>https://example.com/sitemap-2.xml</loc></sitemap>
</sitemapindex>`)

	kind, entries := parseSitemapStream(body)
	require.Equal(t, sitemapKindIndex, kind)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://example.com/sitemap-2.xml", entries[1].Loc)
}

func TestParsePriorityDefaultsOutOfRange(t *testing.T) {
	assert.InDelta(t, 0.5, parsePriority("5.0"), 0.001)
	assert.InDelta(t, 0.5, parsePriority("not-a-number"), 0.001)
	assert.InDelta(t, 0.8, parsePriority("0.8"), 0.001)
}
