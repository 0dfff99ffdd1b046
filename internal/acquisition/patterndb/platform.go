// Package patterndb implements Cortex's Pattern Engine (spec.md §4.4):
// platform fingerprinting and a declarative rule table that augments
// Layer 1's structured fields without ever overriding a higher-confidence
// value.
package patterndb

import (
	"strings"

	"github.com/cortexmap/cortex/pkg/pattern"
)

// Platform is a closed set of e-commerce/CMS platforms Cortex recognizes
// well enough to carry platform-specific rules and action templates for.
type Platform string

const (
	PlatformUnknown    Platform = "unknown"
	PlatformShopify    Platform = "shopify"
	PlatformWooCommerce Platform = "woocommerce"
	PlatformMagento    Platform = "magento"
	PlatformWordPress  Platform = "wordpress"
	PlatformSquarespace Platform = "squarespace"
)

// fingerprintRule recognizes a platform via a marker found in HTML body,
// response headers, or cookie names. Evaluated top-to-bottom, first match
// wins, mirroring the teacher's PatternMatcher evaluation order.
type fingerprintRule struct {
	platform Platform
	markers  []*pattern.Pattern
}

var fingerprintRules = compileFingerprints([]struct {
	platform Platform
	markers  []string
}{
	{PlatformShopify, []string{"*cdn.shopify.com*", "*Shopify.theme*", "~*/cdn/shop/"}},
	{PlatformWooCommerce, []string{"*woocommerce*", "*wp-content/plugins/woocommerce*"}},
	{PlatformMagento, []string{"*Mage.Cookies*", "*/static/version*/frontend/*", "*Magento_*"}},
	{PlatformWordPress, []string{"*wp-content*", "*wp-includes*", `~*<meta name="generator" content="WordPress`}},
	{PlatformSquarespace, []string{"*squarespace.com/universal*", "*static1.squarespace.com*"}},
})

func compileFingerprints(defs []struct {
	platform Platform
	markers  []string
}) []fingerprintRule {
	rules := make([]fingerprintRule, 0, len(defs))
	for _, d := range defs {
		var compiled []*pattern.Pattern
		for _, m := range d.markers {
			p, err := pattern.Compile(m)
			if err != nil {
				continue
			}
			compiled = append(compiled, p)
		}
		rules = append(rules, fingerprintRule{platform: d.platform, markers: compiled})
	}
	return rules
}

// DetectPlatform scans raw HTML body and response headers for known
// platform markers. Returns PlatformUnknown if nothing matches; the
// caller always has a generic-fallback rule set to fall back on.
func DetectPlatform(body []byte, headers map[string]string) Platform {
	haystack := string(body)
	for k, v := range headers {
		haystack += " " + k + ": " + v
	}

	for _, rule := range fingerprintRules {
		for _, marker := range rule.markers {
			if marker.Match(haystack) {
				return rule.platform
			}
		}
	}

	if strings.Contains(haystack, "generator") && strings.Contains(strings.ToLower(haystack), "wordpress") {
		return PlatformWordPress
	}

	return PlatformUnknown
}
