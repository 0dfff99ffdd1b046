package urlutil

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Normalize converts a URL to its canonical form: lowercased scheme/host,
// default ports stripped, duplicate slashes and relative segments collapsed,
// query parameters sorted, and the fragment dropped. It is the single
// source of truth for "is this the same page" across Discovery, the
// Mapper's edge de-duplication, and the Map Cache's lookup key.
func Normalize(rawURL string) (string, error) {
	if !strings.Contains(rawURL, "://") && !strings.HasPrefix(rawURL, "//") {
		rawURL = "https://" + rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(strings.TrimSuffix(u.Host, "."))

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	u.Path = normalizePath(u.Path)
	u.RawQuery = NormalizeQuery(u.RawQuery)
	u.Fragment = ""

	return u.String(), nil
}

// NormalizeDomain strips scheme, path, and a trailing dot from a domain
// argument, matching the Mapper contract's "Normalize domain" step.
func NormalizeDomain(domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", fmt.Errorf("empty domain")
	}
	if idx := strings.Index(domain, "://"); idx != -1 {
		domain = domain[idx+3:]
	}
	if idx := strings.IndexAny(domain, "/?#"); idx != -1 {
		domain = domain[:idx]
	}
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	hostname := ExtractHostname(domain)
	if hostname == "" || (!strings.Contains(hostname, ".") && hostname != "localhost") {
		return "", fmt.Errorf("invalid domain %q", domain)
	}
	return domain, nil
}

// Resolve joins href against base and returns the normalized absolute URL.
// Returns an error for fragment-only, javascript:, mailto:, and tel: links,
// which are not navigable pages.
func Resolve(href, base string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	lower := strings.ToLower(href)
	for _, skip := range []string{"javascript:", "mailto:", "tel:", "data:", "#"} {
		if strings.HasPrefix(lower, skip) {
			return "", fmt.Errorf("non-navigable link: %s", href)
		}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	resolved := baseURL.ResolveReference(ref)
	return Normalize(resolved.String())
}

// Hash returns a stable 64-bit fingerprint of a normalized URL or domain,
// used as a map/dedup key and as the binary format's domain_hash field.
func Hash(normalized string) uint64 {
	return xxhash.Sum64String(normalized)
}

func normalizePath(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}

	parts := strings.Split(path, "/")
	resolved := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(resolved) > 0 && resolved[len(resolved)-1] != ".." {
				resolved = resolved[:len(resolved)-1]
			}
		default:
			resolved = append(resolved, part)
		}
	}

	result := "/" + strings.Join(resolved, "/")
	if len(result) > 1 && strings.HasSuffix(path, "/") {
		result += "/"
	}
	return result
}

// NormalizeQuery sorts query parameters for consistent URL ordering.
func NormalizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var parts []string
	for _, key := range keys {
		for _, value := range values[key] {
			if value == "" {
				parts = append(parts, url.QueryEscape(key))
			} else {
				parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
			}
		}
	}
	return strings.Join(parts, "&")
}
