package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/cortexmap/cortex/internal/common/urlutil"
)

// TypeSignal is one piece of evidence about a page's schema.org/OpenGraph
// type, carried with its source so the Classifier can weigh JSON-LD
// above OG above heuristic.
type TypeSignal struct {
	Value      string
	Source     string // "json-ld", "og", "microdata"
	Confidence float32
}

// FormDescriptor mirrors an HTML <form>.
type FormDescriptor struct {
	Method string
	Action string
	Inputs []string // name attributes, or type when name is absent
}

// TextMetrics are visible-text statistics used by the Feature Encoder's
// content-metrics dimensions (16-21).
type TextMetrics struct {
	WordCount    int
	HeadingCount int
	ImageCount   int
	LinkCount    int
	LinkDensity  float32 // link text chars / total visible text chars
}

// StructuredPage is the Structured Extractor's full output for one page.
type StructuredPage struct {
	TypeSignals []TypeSignal
	Title       string
	Description string
	Canonical   string
	NavTargets  []string // normalized outbound link URLs
	Forms       []FormDescriptor
	MediaCount  int
	Metrics     TextMetrics
	Fields      map[string]string // flat field bag: price, rating, availability, ...
}

// Extract runs the full Layer 1 pipeline over a parsed DOM.
func Extract(root *html.Node, finalURL string) *StructuredPage {
	page := &StructuredPage{Fields: make(map[string]string)}

	head := findFirst(root, "head")
	page.Title = strings.TrimSpace(text(findFirst(head, "title")))
	page.Canonical = resolveCanonical(attr(findCanonicalLink(head), "href"), finalURL)

	extractMeta(head, page)
	extractJSONLD(root, page)
	extractMicrodata(root, page)
	extractLinks(root, finalURL, page)
	extractForms(root, finalURL, page)
	page.Metrics = computeTextMetrics(root)
	page.MediaCount = len(findAll(root, "img")) + len(findAll(root, "video")) + len(findAll(root, "audio"))

	return page
}

func findCanonicalLink(head *html.Node) *html.Node {
	for _, link := range findAll(head, "link") {
		if strings.EqualFold(attr(link, "rel"), "canonical") {
			return link
		}
	}
	return nil
}

func resolveCanonical(href, base string) string {
	if href == "" {
		return ""
	}
	resolved, err := urlutil.Resolve(href, base)
	if err != nil {
		return href
	}
	return resolved
}

func extractMeta(head *html.Node, page *StructuredPage) {
	for _, meta := range findAll(head, "meta") {
		name := strings.ToLower(attr(meta, "name"))
		property := strings.ToLower(attr(meta, "property"))
		content := strings.TrimSpace(attr(meta, "content"))
		if content == "" {
			continue
		}

		switch {
		case name == "description" && page.Description == "":
			page.Description = content
		case property == "og:type":
			page.TypeSignals = append(page.TypeSignals, TypeSignal{Value: content, Source: "og", Confidence: 0.7})
		case property == "og:description" && page.Description == "":
			page.Description = content
		case name == "twitter:card":
			page.Fields["twitter_card"] = content
		case property != "" && strings.HasPrefix(property, "og:"):
			page.Fields["og_"+strings.TrimPrefix(property, "og:")] = content
		case name != "" && strings.HasPrefix(name, "twitter:"):
			page.Fields["twitter_"+strings.TrimPrefix(name, "twitter:")] = content
		}
	}
}

// jsonLDTypes is the closed set of schema.org @type values Cortex's
// PageType classifier weighs (spec.md §4.8).
var jsonLDTypes = map[string]bool{
	"product": true, "article": true, "newsarticle": true, "blogposting": true,
	"faqpage": true, "organization": true, "website": true, "breadcrumblist": true,
	"offer": true, "aggregateoffer": true, "localbusiness": true, "searchaction": true,
}

func extractJSONLD(root *html.Node, page *StructuredPage) {
	for _, script := range findAll(root, "script") {
		if !strings.EqualFold(attr(script, "type"), "application/ld+json") {
			continue
		}
		raw := text(script)
		var doc any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			continue // malformed JSON-LD: downgrade to no signal, never fatal
		}
		walkJSONLD(doc, page)
	}
}

func walkJSONLD(node any, page *StructuredPage) {
	switch v := node.(type) {
	case map[string]any:
		if t, ok := v["@type"].(string); ok {
			lower := strings.ToLower(t)
			if jsonLDTypes[lower] {
				page.TypeSignals = append(page.TypeSignals, TypeSignal{Value: lower, Source: "json-ld", Confidence: 0.95})
			}
		}
		if offers, ok := v["offers"].(map[string]any); ok {
			if price, ok := offers["price"]; ok {
				page.Fields["price"] = toStr(price)
			}
			if avail, ok := offers["availability"].(string); ok {
				page.Fields["availability"] = avail
			}
		}
		if rating, ok := v["aggregateRating"].(map[string]any); ok {
			if v, ok := rating["ratingValue"]; ok {
				page.Fields["rating"] = toStr(v)
			}
			if v, ok := rating["reviewCount"]; ok {
				page.Fields["review_count"] = toStr(v)
			}
		}
		for _, child := range v {
			walkJSONLD(child, page)
		}
	case []any:
		for _, child := range v {
			walkJSONLD(child, page)
		}
	}
}

func toStr(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// extractMicrodata is a minimal Schema.org microdata/RDFa reader: it
// looks for itemtype/itemprop attribute pairs, lower confidence than
// JSON-LD since microdata is routinely stale or partially applied.
func extractMicrodata(root *html.Node, page *StructuredPage) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if itemtype := attr(n, "itemtype"); itemtype != "" {
				parts := strings.Split(itemtype, "/")
				typeName := strings.ToLower(parts[len(parts)-1])
				if jsonLDTypes[typeName] {
					page.TypeSignals = append(page.TypeSignals, TypeSignal{Value: typeName, Source: "microdata", Confidence: 0.6})
				}
			}
			if prop := attr(n, "itemprop"); prop != "" {
				switch strings.ToLower(prop) {
				case "price":
					page.Fields["price"] = strings.TrimSpace(attr(n, "content"))
				case "ratingvalue":
					page.Fields["rating"] = strings.TrimSpace(attr(n, "content"))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

func extractLinks(root *html.Node, finalURL string, page *StructuredPage) {
	seen := make(map[string]bool)
	for _, a := range findAll(root, "a") {
		href := attr(a, "href")
		if href == "" {
			continue
		}
		resolved, err := urlutil.Resolve(href, finalURL)
		if err != nil || seen[resolved] {
			continue
		}
		seen[resolved] = true
		page.NavTargets = append(page.NavTargets, resolved)
	}
}

func extractForms(root *html.Node, finalURL string, page *StructuredPage) {
	for _, form := range findAll(root, "form") {
		fd := FormDescriptor{
			Method: strings.ToUpper(attr(form, "method")),
			Action: attr(form, "action"),
		}
		if fd.Method == "" {
			fd.Method = "GET"
		}
		if fd.Action != "" {
			if resolved, err := urlutil.Resolve(fd.Action, finalURL); err == nil {
				fd.Action = resolved
			}
		} else {
			fd.Action = finalURL
		}
		for _, input := range append(findAll(form, "input"), append(findAll(form, "select"), findAll(form, "textarea")...)...) {
			if name := attr(input, "name"); name != "" {
				fd.Inputs = append(fd.Inputs, name)
			} else if typ := attr(input, "type"); typ != "" {
				fd.Inputs = append(fd.Inputs, typ)
			}
		}
		page.Forms = append(page.Forms, fd)
	}
}

func computeTextMetrics(root *html.Node) TextMetrics {
	body := findFirst(root, "body")
	visible := text(body)
	words := strings.Fields(visible)

	var headingCount int
	for _, tag := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		headingCount += len(findAll(root, tag))
	}

	links := findAll(root, "a")
	var linkTextLen int
	for _, a := range links {
		linkTextLen += len(strings.TrimSpace(text(a)))
	}

	density := float32(0)
	if total := len(visible); total > 0 {
		density = float32(linkTextLen) / float32(total)
	}

	return TextMetrics{
		WordCount:    len(words),
		HeadingCount: headingCount,
		ImageCount:   len(findAll(root, "img")),
		LinkCount:    len(links),
		LinkDensity:  density,
	}
}
