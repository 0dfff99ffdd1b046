// Package apiprobe implements Cortex's Layer 2 API Probe (spec.md §4.5):
// a small bounded set of known JSON endpoints fired per fingerprinted
// platform, to recover structured data static HTML hides behind
// client-side rendering. Non-recursive: it never follows links found
// in a probed response.
package apiprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/cortexmap/cortex/internal/acquisition/patterndb"
)

const defaultTimeout = 8 * time.Second

// Endpoint is one known JSON endpoint template for a platform. Path may
// contain no placeholders (probed as-is against the domain) since Cortex
// only probes domain-level collection endpoints, never per-product IDs
// it would have to guess.
type Endpoint struct {
	Path   string
	Field  string // field this endpoint is expected to populate, e.g. "products"
}

// endpointsByPlatform is the closed, hand-curated set of JSON endpoints
// Cortex knows how to interpret. Unlisted platforms get no probes.
var endpointsByPlatform = map[patterndb.Platform][]Endpoint{
	patterndb.PlatformShopify: {
		{Path: "/products.json", Field: "products"},
		{Path: "/collections/all/products.json", Field: "products"},
	},
	patterndb.PlatformWooCommerce: {
		{Path: "/wp-json/wc/store/products", Field: "products"},
	},
}

// Result is one probed endpoint's outcome.
type Result struct {
	Endpoint   Endpoint
	StatusCode int
	Body       []byte
	Err        error
}

// Prober fires the bounded endpoint set for a fingerprinted platform.
type Prober struct {
	client *fasthttp.Client
	logger *zap.Logger
}

func New(logger *zap.Logger) *Prober {
	return &Prober{
		client: &fasthttp.Client{
			ReadTimeout:  defaultTimeout,
			WriteTimeout: defaultTimeout,
		},
		logger: logger,
	}
}

// Probe fires every known endpoint for platform against scheme://domain.
// Probes run sequentially: the set is small (at most a handful of
// entries) and non-recursive, so there is no concurrency budget worth
// spending here the way there is for page fetching.
func (p *Prober) Probe(ctx context.Context, scheme, domain string, platform patterndb.Platform) []Result {
	endpoints := endpointsByPlatform[platform]
	if len(endpoints) == 0 {
		return nil
	}

	results := make([]Result, 0, len(endpoints))
	for _, ep := range endpoints {
		results = append(results, p.fetchOne(ctx, scheme, domain, ep))
	}
	return results
}

func (p *Prober) fetchOne(ctx context.Context, scheme, domain string, ep Endpoint) Result {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	url := fmt.Sprintf("%s://%s%s", scheme, domain, ep.Path)
	req.SetRequestURI(url)
	req.Header.SetMethod("GET")
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultTimeout)
	}

	if err := p.client.DoDeadline(req, resp, deadline); err != nil {
		p.logger.Debug("api probe failed", zap.String("url", url), zap.Error(err))
		return Result{Endpoint: ep, Err: err}
	}

	return Result{
		Endpoint:   ep,
		StatusCode: resp.StatusCode(),
		Body:       append([]byte(nil), resp.Body()...),
	}
}

// DecodeProducts is a best-effort decode of a probed products-collection
// response into a flat list of price/title pairs. Platform JSON shapes
// vary enough that Cortex only extracts the few fields the Feature
// Encoder actually consumes, rather than modeling each platform's full
// schema.
type ProbedProduct struct {
	Title string `json:"title"`
	Price string `json:"price"`
}

func DecodeProducts(body []byte) []ProbedProduct {
	var shopify struct {
		Products []struct {
			Title    string `json:"title"`
			Variants []struct {
				Price string `json:"price"`
			} `json:"variants"`
		} `json:"products"`
	}
	if err := json.Unmarshal(body, &shopify); err == nil && len(shopify.Products) > 0 {
		out := make([]ProbedProduct, 0, len(shopify.Products))
		for _, prod := range shopify.Products {
			price := ""
			if len(prod.Variants) > 0 {
				price = prod.Variants[0].Price
			}
			out = append(out, ProbedProduct{Title: prod.Title, Price: price})
		}
		return out
	}

	var woo []struct {
		Name   string `json:"name"`
		Prices struct {
			Price string `json:"price"`
		} `json:"prices"`
	}
	if err := json.Unmarshal(body, &woo); err == nil && len(woo) > 0 {
		out := make([]ProbedProduct, 0, len(woo))
		for _, prod := range woo {
			out = append(out, ProbedProduct{Title: prod.Name, Price: prod.Prices.Price})
		}
		return out
	}

	return nil
}
