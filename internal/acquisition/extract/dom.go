// Package extract implements Cortex's Structured Extractor (spec.md
// §4.3): JSON-LD, OpenGraph/Twitter meta, microdata, link/form
// introspection, and visible-text metrics, over a parsed DOM.
package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// findAll returns every element with the given (lowercase) tag name
// within the subtree rooted at node, in document order.
func findAll(node *html.Node, tag string) []*html.Node {
	if node == nil {
		return nil
	}
	tag = strings.ToLower(tag)
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.ToLower(n.Data) == tag {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return results
}

func findFirst(node *html.Node, tag string) *html.Node {
	all := findAll(node, tag)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

func attr(node *html.Node, name string) string {
	if node == nil {
		return ""
	}
	name = strings.ToLower(name)
	for _, a := range node.Attr {
		if strings.ToLower(a.Key) == name {
			return a.Val
		}
	}
	return ""
}

func text(node *html.Node) string {
	if node == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "script", "style", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return sb.String()
}

// ParseDOM parses raw HTML bytes (already normalized to UTF-8 by the
// caller) into an *html.Node document root.
func ParseDOM(htmlBytes []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(htmlBytes))
}
