package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmap/cortex/internal/acquisition/extract"
	"github.com/cortexmap/cortex/internal/acquisition/patterndb"
	"github.com/cortexmap/cortex/internal/mapmodel"
)

func TestDiscoverClassifiesCartForm(t *testing.T) {
	page := &extract.StructuredPage{
		Forms: []extract.FormDescriptor{
			{Method: "POST", Action: "https://shop.example.com/cart/add", Inputs: []string{"sku", "qty"}},
		},
	}

	found := Discover(page, nil, patterndb.PlatformUnknown)
	require.Len(t, found, 1)
	assert.Equal(t, mapmodel.ActionCategoryCart, found[0].Category)
	assert.Equal(t, mapmodel.VariantCartAdd, found[0].Variant)
}

func TestDiscoverAddsShopifyTemplates(t *testing.T) {
	page := &extract.StructuredPage{}
	found := Discover(page, nil, patterndb.PlatformShopify)

	var sawAdd bool
	for _, a := range found {
		if a.SelectorOrEndpoint == "/cart/add.js" {
			sawAdd = true
		}
	}
	assert.True(t, sawAdd)
}

func TestDiscoverScansJSEndpoints(t *testing.T) {
	html := []byte(`<script>fetch('/api/cart/add', {method:'POST'})</script>`)
	found := Discover(&extract.StructuredPage{}, html, patterndb.PlatformUnknown)

	var sawJS bool
	for _, a := range found {
		if a.SelectorOrEndpoint == "/api/cart/add" {
			sawJS = true
			assert.True(t, a.BrowserRequired)
		}
	}
	assert.True(t, sawJS)
}

func TestDiscoverDeduplicates(t *testing.T) {
	page := &extract.StructuredPage{
		Forms: []extract.FormDescriptor{
			{Method: "POST", Action: "/cart/add", Inputs: nil},
			{Method: "POST", Action: "/cart/add", Inputs: nil},
		},
	}
	found := Discover(page, nil, patterndb.PlatformUnknown)
	assert.Len(t, found, 1)
}
