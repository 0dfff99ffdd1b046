package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Wireless Mouse - Acme Store</title>
  <meta name="description" content="A great wireless mouse.">
  <meta property="og:type" content="product">
  <link rel="canonical" href="/products/wireless-mouse">
  <script type="application/ld+json">
  {
    "@type": "Product",
    "name": "Wireless Mouse",
    "offers": {"@type": "Offer", "price": "29.99", "availability": "InStock"},
    "aggregateRating": {"ratingValue": "4.5", "reviewCount": "120"}
  }
  </script>
</head>
<body>
  <h1>Wireless Mouse</h1>
  <p>This mouse is great for travel and everyday use at your desk.</p>
  <img src="/img/mouse.png">
  <a href="/cart">Add to cart</a>
  <a href="/products/other">Other product</a>
  <form method="post" action="/cart/add">
    <input type="hidden" name="sku">
    <input type="submit">
  </form>
</body>
</html>`

func TestExtractJSONLDAndFields(t *testing.T) {
	root, err := ParseDOM([]byte(samplePage))
	require.NoError(t, err)

	page := Extract(root, "https://shop.example.com/products/wireless-mouse")

	assert.Equal(t, "Wireless Mouse - Acme Store", page.Title)
	assert.Equal(t, "A great wireless mouse.", page.Description)
	assert.Equal(t, "https://shop.example.com/products/wireless-mouse", page.Canonical)
	assert.Equal(t, "29.99", page.Fields["price"])
	assert.Equal(t, "InStock", page.Fields["availability"])
	assert.Equal(t, "4.5", page.Fields["rating"])
	assert.Equal(t, "120", page.Fields["review_count"])

	var sawJSONLD, sawOG bool
	for _, s := range page.TypeSignals {
		if s.Source == "json-ld" && s.Value == "product" {
			sawJSONLD = true
		}
		if s.Source == "og" && s.Value == "product" {
			sawOG = true
		}
	}
	assert.True(t, sawJSONLD)
	assert.True(t, sawOG)
}

func TestExtractLinksAndForms(t *testing.T) {
	root, err := ParseDOM([]byte(samplePage))
	require.NoError(t, err)

	page := Extract(root, "https://shop.example.com/products/wireless-mouse")

	require.Len(t, page.NavTargets, 2)
	assert.Contains(t, page.NavTargets, "https://shop.example.com/cart")
	assert.Contains(t, page.NavTargets, "https://shop.example.com/products/other")

	require.Len(t, page.Forms, 1)
	form := page.Forms[0]
	assert.Equal(t, "POST", form.Method)
	assert.Equal(t, "https://shop.example.com/cart/add", form.Action)
	assert.Contains(t, form.Inputs, "sku")
}

func TestExtractTextMetrics(t *testing.T) {
	root, err := ParseDOM([]byte(samplePage))
	require.NoError(t, err)

	page := Extract(root, "https://shop.example.com/products/wireless-mouse")

	assert.Equal(t, 1, page.Metrics.HeadingCount)
	assert.Equal(t, 1, page.Metrics.ImageCount)
	assert.Equal(t, 2, page.Metrics.LinkCount)
	assert.Greater(t, page.Metrics.WordCount, 0)
}

func TestExtractMalformedJSONLDDowngradesSilently(t *testing.T) {
	html := `<html><head><script type="application/ld+json">{not valid json</script></head><body></body></html>`
	root, err := ParseDOM([]byte(html))
	require.NoError(t, err)

	page := Extract(root, "https://example.com/")
	assert.Empty(t, page.TypeSignals)
}
