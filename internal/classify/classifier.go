package classify

import (
	"regexp"
	"strings"

	"github.com/cortexmap/cortex/internal/mapmodel"
)

const minNonOtherConfidence = 0.35

// scoreRule contributes weight to one PageType when its predicate
// matches Signals. Rules run for every candidate type; the highest
// total score wins, ties broken by PageType enum order (spec.md §4.8).
type scoreRule struct {
	pageType mapmodel.PageType
	weight   float32
	match    func(Signals) bool
}

var urlPathPatterns = map[mapmodel.PageType]*regexp.Regexp{
	mapmodel.PageTypeProductListing: regexp.MustCompile(`(?i)/(collections?|categor(y|ies)|shop|products?)(/|$)`),
	mapmodel.PageTypeSearchResults:  regexp.MustCompile(`(?i)/(search|results)(/|\?|$)`),
	mapmodel.PageTypeProductDetail:  regexp.MustCompile(`(?i)/(products?|items?|p)/[^/]+/?$`),
	mapmodel.PageTypeCart:           regexp.MustCompile(`(?i)/(cart|basket|bag)(/|$)`),
	mapmodel.PageTypeArticle:        regexp.MustCompile(`(?i)/(blog|news|article|post)s?/`),
	mapmodel.PageTypeDocumentation:  regexp.MustCompile(`(?i)/(docs?|documentation|api-reference|guide)s?(/|$)`),
	mapmodel.PageTypeLogin:          regexp.MustCompile(`(?i)/(login|signin|sign-in)(/|$)`),
	mapmodel.PageTypeCheckout:       regexp.MustCompile(`(?i)/checkout(/|$)`),
	mapmodel.PageTypeProfile:        regexp.MustCompile(`(?i)/(account|profile|my-account)(/|$)`),
	mapmodel.PageTypeAPIEndpoint:    regexp.MustCompile(`(?i)/(api|v[0-9]+)/`),
	mapmodel.PageTypeDashboard:      regexp.MustCompile(`(?i)/(dashboard|admin|panel)(/|$)`),
}

var jsonLDTypeMap = map[string]mapmodel.PageType{
	"product":         mapmodel.PageTypeProductDetail,
	"offer":           mapmodel.PageTypeProductDetail,
	"aggregateoffer":  mapmodel.PageTypeProductDetail,
	"article":         mapmodel.PageTypeArticle,
	"newsarticle":     mapmodel.PageTypeArticle,
	"blogposting":     mapmodel.PageTypeArticle,
	"faqpage":         mapmodel.PageTypeDocumentation,
	"breadcrumblist":  mapmodel.PageTypeProductListing,
	"searchaction":    mapmodel.PageTypeSearchResults,
	"localbusiness":   mapmodel.PageTypeOther,
	"organization":    mapmodel.PageTypeOther,
	"website":         mapmodel.PageTypeHome,
}

var ogTypeMap = map[string]mapmodel.PageType{
	"product":       mapmodel.PageTypeProductDetail,
	"article":       mapmodel.PageTypeArticle,
	"website":       mapmodel.PageTypeHome,
	"profile":       mapmodel.PageTypeProfile,
}

// Classify scores every PageType and returns the winner with its
// confidence. A score below minNonOtherConfidence collapses to Other.
func Classify(s Signals) (mapmodel.PageType, float32) {
	scores := make(map[mapmodel.PageType]float32, len(mapmodel.AllPageTypes))

	path := urlPath(s.URL)
	if path == "/" || path == "" {
		scores[mapmodel.PageTypeHome] += 0.6
	}
	for pt, re := range urlPathPatterns {
		if re.MatchString(path) {
			scores[pt] += 0.5
		}
	}

	if s.Page != nil {
		for _, sig := range s.Page.TypeSignals {
			var target mapmodel.PageType
			var ok bool
			switch sig.Source {
			case "json-ld", "microdata":
				target, ok = jsonLDTypeMap[sig.Value]
			case "og":
				target, ok = ogTypeMap[sig.Value]
			}
			if ok {
				scores[target] += sig.Confidence
			}
		}
	}

	if _, hasPrice := s.Fields["price"]; hasPrice {
		scores[mapmodel.PageTypeProductDetail] += 0.3
	}
	if _, hasAvail := s.Fields["availability"]; hasAvail {
		scores[mapmodel.PageTypeProductDetail] += 0.1
	}

	safe, cautious, destructive := s.ActionCounts()
	if destructive > 0 {
		scores[mapmodel.PageTypeCheckout] += 0.3
		scores[mapmodel.PageTypeCart] += 0.2
	}
	if cautious > 0 && safe == 0 && destructive == 0 {
		scores[mapmodel.PageTypeLogin] += 0.15
	}

	if s.AuthRequired {
		scores[mapmodel.PageTypeLogin] += 0.1
		scores[mapmodel.PageTypeDashboard] += 0.2
	}

	if !s.HTTPStatusOK {
		scores[mapmodel.PageTypeError] += 0.9
	}

	return bestScore(scores)
}

// bestScore picks the highest-scoring type, breaking ties by PageType
// enum order as spec.md §4.8 requires, and collapses sub-floor scores
// to Other.
func bestScore(scores map[mapmodel.PageType]float32) (mapmodel.PageType, float32) {
	var best mapmodel.PageType = mapmodel.PageTypeOther
	var bestScore float32

	for _, pt := range mapmodel.AllPageTypes {
		score := scores[pt]
		if score > bestScore {
			bestScore = score
			best = pt
		}
	}

	if bestScore < minNonOtherConfidence {
		return mapmodel.PageTypeOther, clamp01(bestScore)
	}
	return best, clamp01(bestScore)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func urlPath(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL
	}
	rest := rawURL[idx+3:]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return "/"
	}
	return rest[slash:]
}
