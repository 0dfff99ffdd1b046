// Package discovery implements Cortex's Discovery layer (spec.md §4.2):
// robots.txt + declared sitemaps, streaming sitemap.xml (incl. index and
// gzip), RSS/Atom feeds, a curated common-path seed list with HEAD
// scans, merged into a single deduplicated, ranked candidate list.
package discovery

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/cortexmap/cortex/internal/acquisition/fetch"
	"github.com/cortexmap/cortex/internal/common/urlutil"
)

const headScanConcurrency = 8

// Candidate is one ranked, deduplicated discovery result.
type Candidate struct {
	URL      string
	Priority float64 // from sitemap <priority>, or a default band for other sources
	Source   string  // "sitemap", "feed", "common-path", "link"
}

// Result is Discovery's full output for one domain.
type Result struct {
	Candidates []Candidate
	Robots     *Robots
}

// Discover runs the full Layer 0 pipeline against domain and returns a
// ranked, deduplicated candidate list clipped to maxCandidates.
func Discover(ctx context.Context, f *fetch.Fetcher, domain string, respectRobots bool, maxCandidates int) *Result {
	scheme := "https"
	robots := FetchRobots(ctx, f, scheme, domain)

	seen := make(map[string]bool)
	var candidates []Candidate
	add := func(rawURL string, priority float64, source string) {
		norm, err := urlutil.Normalize(rawURL)
		if err != nil || seen[norm] {
			return
		}
		if respectRobots && !robots.Allowed(norm) {
			return
		}
		seen[norm] = true
		candidates = append(candidates, Candidate{URL: norm, Priority: priority, Source: source})
	}

	sitemapRoots := robots.Sitemaps()
	if len(sitemapRoots) == 0 {
		sitemapRoots = []string{scheme + "://" + domain + "/sitemap.xml"}
	}
	for _, e := range FetchSitemaps(ctx, f, sitemapRoots) {
		add(e.Loc, e.Priority, "sitemap")
	}

	for _, feedPath := range []string{"/feed", "/rss.xml", "/atom.xml", "/feed.xml", "/rss"} {
		for _, link := range FetchFeed(ctx, f, scheme+"://"+domain+feedPath) {
			add(link, 0.6, "feed")
		}
	}

	headResults := headScan(ctx, f, scheme, domain)
	for _, u := range headResults {
		add(u, 0.5, "common-path")
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		if len(candidates[i].URL) != len(candidates[j].URL) {
			return len(candidates[i].URL) < len(candidates[j].URL)
		}
		return candidates[i].URL < candidates[j].URL
	})

	if maxCandidates > 0 && len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	return &Result{Candidates: candidates, Robots: robots}
}

// headScan fires bounded-concurrency HEAD requests against CommonPaths
// and returns those that resolved to a 2xx/3xx status.
func headScan(ctx context.Context, f *fetch.Fetcher, scheme, domain string) []string {
	sem := semaphore.NewWeighted(headScanConcurrency)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var found []string

	for _, path := range CommonPaths {
		path := path
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			url := scheme + "://" + domain + path
			outcome := f.Fetch(ctx, url, true)
			if outcome.Status >= 200 && outcome.Status < 400 {
				mu.Lock()
				found = append(found, url)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return found
}
