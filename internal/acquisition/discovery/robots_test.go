package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRobotsDisallow(t *testing.T) {
	body := []byte(`
User-agent: *
Disallow: /admin
Disallow: /cart
Allow: /cart/preview
Crawl-delay: 2
Sitemap: https://example.com/sitemap.xml
`)
	r := ParseRobots(body)

	assert.False(t, r.Allowed("https://example.com/admin/settings"))
	assert.True(t, r.Allowed("https://example.com/cart/preview"))
	assert.False(t, r.Allowed("https://example.com/cart/checkout"))
	assert.True(t, r.Allowed("https://example.com/about"))
	assert.Equal(t, 2*time.Second, r.CrawlDelay("example.com"))
	assert.Equal(t, []string{"https://example.com/sitemap.xml"}, r.Sitemaps())
}

func TestParseRobotsIgnoresOtherAgents(t *testing.T) {
	body := []byte(`
User-agent: Googlebot
Disallow: /private
`)
	r := ParseRobots(body)
	assert.True(t, r.Allowed("https://example.com/private"))
}

func TestEmptyRobotsAllowsEverything(t *testing.T) {
	var r *Robots
	assert.True(t, r.Allowed("https://example.com/anything"))
	assert.Equal(t, time.Duration(0), r.CrawlDelay("example.com"))
}
