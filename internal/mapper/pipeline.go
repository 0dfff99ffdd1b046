package mapper

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/cortexmap/cortex/internal/acquisition/actions"
	"github.com/cortexmap/cortex/internal/acquisition/apiprobe"
	"github.com/cortexmap/cortex/internal/acquisition/browser"
	"github.com/cortexmap/cortex/internal/acquisition/extract"
	"github.com/cortexmap/cortex/internal/acquisition/fetch"
	"github.com/cortexmap/cortex/internal/acquisition/patterndb"
	"github.com/cortexmap/cortex/internal/classify"
	"github.com/cortexmap/cortex/internal/mapmodel"
	"github.com/cortexmap/cortex/internal/metrics"
)

// requiredFields is the set Layer 3's coverage threshold (spec.md §4.7)
// is measured against: the commerce/metadata fields a well-formed page
// is expected to expose, regardless of whether this particular page
// type needs all of them.
var requiredFields = []string{"title", "description", "price", "availability", "rating"}

// pipelineResult is one URL's full acquisition outcome, ready to feed
// the Classifier/Encoder and edge assembly.
type pipelineResult struct {
	URL          string
	FinalURL     string
	Page         *extract.StructuredPage
	Fields       map[string]string
	Actions      []mapmodel.Action
	Rendered     bool
	HTTPStatusOK bool
	AuthRequired bool
	Blocked      bool
	LoadTimeMS   float64
}

// acquire runs the L1->L1.5->L2->L2.5 pipeline for one URL, escalating
// to Layer 3 (browser) when static coverage is too low or the page
// looks like an empty-shell SPA.
func acquire(ctx context.Context, f *fetch.Fetcher, prober *apiprobe.Prober, pool *browser.Pool, scheme, domain, rawURL string, logger *zap.Logger, metricsCollector *metrics.Collector) *pipelineResult {
	outcome := f.Fetch(ctx, rawURL, false)

	res := &pipelineResult{
		URL:          rawURL,
		FinalURL:     outcome.FinalURL,
		HTTPStatusOK: outcome.OK(),
		AuthRequired: outcome.Status == 401 || outcome.Status == 403,
		LoadTimeMS:   float64(outcome.Timing.Milliseconds()),
		Fields:       map[string]string{},
	}
	if !outcome.OK() {
		res.Blocked = outcome.Failure != fetch.FailureNone
		return res
	}

	root, err := extract.ParseDOM(outcome.Body)
	if err != nil {
		res.Blocked = true
		return res
	}
	page := extract.Extract(root, outcome.FinalURL)
	res.Page = page
	mergeFields(res.Fields, page)

	headers := flattenHeaders(outcome.Headers)
	platform := patterndb.DetectPlatform(outcome.Body, headers)

	existingConf := map[string]float32{}
	for k := range res.Fields {
		existingConf[k] = 1.0 // Layer 1 presence counts as full confidence for override purposes
	}
	for _, fm := range patterndb.Apply(outcome.Body, platform, existingConf) {
		if _, ok := res.Fields[fm.Field]; !ok {
			res.Fields[fm.Field] = fm.Value
		}
	}

	res.Actions = actions.Discover(page, outcome.Body, platform)

	if prober != nil && platform != patterndb.PlatformUnknown {
		for _, pr := range prober.Probe(ctx, scheme, domain, platform) {
			if pr.Err != nil || pr.StatusCode != 200 {
				continue
			}
			for _, prod := range apiprobe.DecodeProducts(pr.Body) {
				if prod.Price != "" {
					if _, ok := res.Fields["price"]; !ok {
						res.Fields["price"] = prod.Price
					}
				}
			}
		}
	}

	if pool != nil && needsBrowser(res) {
		if metricsCollector != nil {
			metricsCollector.RecordBrowserFallback()
		}
		rendered, err := pool.Render(ctx, outcome.FinalURL, existingConf)
		if err == nil {
			res.Rendered = true
			res.Page = rendered.Page
			mergeFields(res.Fields, rendered.Page)
			for _, fm := range rendered.Fields {
				if _, ok := res.Fields[fm.Field]; !ok {
					res.Fields[fm.Field] = fm.Value
				}
			}
			res.Actions = append(res.Actions, actions.Discover(rendered.Page, []byte(rendered.HTML), rendered.Platform)...)
		} else if err != browser.ErrPoolUnavailable {
			logger.Debug("browser fallback failed", zap.String("url", rawURL), zap.Error(err))
		}
	}

	return res
}

func needsBrowser(res *pipelineResult) bool {
	if res.Page == nil {
		return true
	}
	present := 0
	for _, f := range requiredFields {
		if v, ok := res.Fields[f]; ok && v != "" {
			present++
		}
	}
	coverage := float64(present) / float64(len(requiredFields))
	if coverage < 0.20 {
		return true
	}
	return len(res.Page.NavTargets) == 0
}

func mergeFields(dst map[string]string, page *extract.StructuredPage) {
	if page == nil {
		return
	}
	if page.Title != "" {
		dst["title"] = page.Title
	}
	if page.Description != "" {
		dst["description"] = page.Description
	}
	for k, v := range page.Fields {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

func flattenHeaders(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// toSignals converts one URL's pipeline result into classify.Signals.
func toSignals(r *pipelineResult, urlDepth int) classify.Signals {
	return classify.Signals{
		URL:          r.URL,
		FinalURL:     r.FinalURL,
		Page:         r.Page,
		Fields:       r.Fields,
		Actions:      r.Actions,
		Rendered:     r.Rendered,
		HTTPStatusOK: r.HTTPStatusOK,
		AuthRequired: r.AuthRequired,
		TLS:          strings.HasPrefix(r.FinalURL, "https://"),
		LoadTimeMS:   r.LoadTimeMS,
		URLDepth:     urlDepth,
	}
}
