// Package actions implements Cortex's Action Discoverer (spec.md §4.6):
// turns HTML forms, platform action templates, and recognizable
// JS-endpoint calls into mapmodel.Action entries.
package actions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cortexmap/cortex/internal/acquisition/extract"
	"github.com/cortexmap/cortex/internal/acquisition/patterndb"
	"github.com/cortexmap/cortex/internal/mapmodel"
)

// Discover builds the set of actions observable on one page from its
// Structured Extractor output and its detected platform. It never
// invokes anything — purely static discovery.
func Discover(page *extract.StructuredPage, rawHTML []byte, platform patterndb.Platform) []mapmodel.Action {
	var out []mapmodel.Action
	out = append(out, fromForms(page.Forms)...)
	out = append(out, platformTemplates(platform, page)...)
	out = append(out, fromJSEndpoints(rawHTML)...)
	return dedupe(out)
}

func fromForms(forms []extract.FormDescriptor) []mapmodel.Action {
	var out []mapmodel.Action
	for _, f := range forms {
		category, variant := classifyForm(f)
		out = append(out, mapmodel.Action{
			Category:           category,
			Variant:            variant,
			SelectorOrEndpoint: f.Action,
			BrowserRequired:    false,
			ParamsSchema:       schemaFromInputs(f.Inputs),
		})
	}
	return out
}

// classifyForm maps a form's action URL and input names onto the
// closed category/variant catalogue using simple keyword heuristics,
// the same style the teacher's pattern matcher uses for URL rules:
// small ordered checks, first match wins.
func classifyForm(f extract.FormDescriptor) (mapmodel.ActionCategory, mapmodel.ActionVariant) {
	lower := strings.ToLower(f.Action)
	joined := strings.ToLower(strings.Join(f.Inputs, " "))
	searchInput := false
	for _, in := range f.Inputs {
		name := strings.ToLower(in)
		if name == "q" || strings.Contains(name, "query") {
			searchInput = true
		}
	}

	switch {
	case strings.Contains(lower, "search") || searchInput:
		return mapmodel.ActionCategorySearch, mapmodel.VariantSearchSubmit
	case strings.Contains(lower, "cart") && strings.Contains(lower, "checkout"):
		return mapmodel.ActionCategoryCart, mapmodel.VariantCartCheckout
	case strings.Contains(lower, "cart"):
		return mapmodel.ActionCategoryCart, mapmodel.VariantCartAdd
	case strings.Contains(lower, "login") || strings.Contains(lower, "signin"):
		return mapmodel.ActionCategoryAuth, mapmodel.VariantAuthLogin
	case strings.Contains(lower, "logout") || strings.Contains(lower, "signout"):
		return mapmodel.ActionCategoryAuth, mapmodel.VariantAuthLogout
	case strings.Contains(lower, "register") || strings.Contains(lower, "signup"):
		return mapmodel.ActionCategoryAuth, mapmodel.VariantAuthRegister
	case strings.Contains(joined, "email") && strings.Contains(lower, "subscribe"):
		return mapmodel.ActionCategoryForm, mapmodel.VariantFormNewsletter
	case strings.Contains(lower, "contact"):
		return mapmodel.ActionCategoryForm, mapmodel.VariantFormContact
	default:
		return mapmodel.ActionCategoryForm, mapmodel.VariantFormGeneric
	}
}

func schemaFromInputs(inputs []string) string {
	if len(inputs) == 0 {
		return ""
	}
	return `{"fields":["` + strings.Join(inputs, `","`) + `"]}`
}

// platformTemplate is a known action affordance a platform always
// exposes at a conventional endpoint, even when no <form> is present
// in the static DOM (e.g. Shopify's AJAX cart).
type platformTemplate struct {
	category        mapmodel.ActionCategory
	variant         mapmodel.ActionVariant
	endpoint        string
	browserRequired bool
}

var templatesByPlatform = map[patterndb.Platform][]platformTemplate{
	patterndb.PlatformShopify: {
		{mapmodel.ActionCategoryCart, mapmodel.VariantCartAdd, "/cart/add.js", false},
		{mapmodel.ActionCategoryCart, mapmodel.VariantCartUpdateQuantity, "/cart/change.js", false},
		{mapmodel.ActionCategorySearch, mapmodel.VariantSearchSubmit, "/search", false},
	},
	patterndb.PlatformWooCommerce: {
		{mapmodel.ActionCategoryCart, mapmodel.VariantCartAdd, "/?wc-ajax=add_to_cart", false},
	},
}

func platformTemplates(platform patterndb.Platform, page *extract.StructuredPage) []mapmodel.Action {
	var out []mapmodel.Action
	for _, tmpl := range templatesByPlatform[platform] {
		out = append(out, mapmodel.Action{
			Category:           tmpl.category,
			Variant:            tmpl.variant,
			SelectorOrEndpoint: tmpl.endpoint,
			BrowserRequired:    tmpl.browserRequired,
		})
	}
	return out
}

// jsEndpointPattern scans inline and attribute JS for fetch/XHR calls
// against a small set of recognizable cart/search/auth endpoint shapes.
// Cortex never executes this JS; it's a static regex scan, the same
// bounded-risk approach the teacher uses for bot pattern detection.
var jsEndpointPattern = regexp.MustCompile(`(?i)(?:fetch|\.open)\(\s*['"]([/][a-z0-9_\-/.?=&]*(?:cart|search|login|checkout)[a-z0-9_\-/.?=&]*)['"]`)

func fromJSEndpoints(rawHTML []byte) []mapmodel.Action {
	var out []mapmodel.Action
	for _, m := range jsEndpointPattern.FindAllSubmatch(rawHTML, -1) {
		endpoint := string(m[1])
		category, variant := classifyEndpointPath(endpoint)
		out = append(out, mapmodel.Action{
			Category:           category,
			Variant:            variant,
			SelectorOrEndpoint: endpoint,
			BrowserRequired:    true, // discovered via JS scan: requires the browser fallback to actually invoke
		})
	}
	return out
}

func classifyEndpointPath(path string) (mapmodel.ActionCategory, mapmodel.ActionVariant) {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "checkout"):
		return mapmodel.ActionCategoryCart, mapmodel.VariantCartCheckout
	case strings.Contains(lower, "cart"):
		return mapmodel.ActionCategoryCart, mapmodel.VariantCartAdd
	case strings.Contains(lower, "search"):
		return mapmodel.ActionCategorySearch, mapmodel.VariantSearchSubmit
	case strings.Contains(lower, "login"):
		return mapmodel.ActionCategoryAuth, mapmodel.VariantAuthLogin
	default:
		return mapmodel.ActionCategoryForm, mapmodel.VariantFormGeneric
	}
}

func dedupe(actions []mapmodel.Action) []mapmodel.Action {
	seen := make(map[string]bool)
	out := make([]mapmodel.Action, 0, len(actions))
	for _, a := range actions {
		key := fmt.Sprintf("%d:%d:%s", a.Category, a.Variant, a.SelectorOrEndpoint)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
