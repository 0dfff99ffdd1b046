package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/publicsuffix"

	"github.com/cortexmap/cortex/internal/common/urlutil"
)

const (
	defaultMaxRedirects   = 10
	defaultPerHostLimit   = 5
	defaultMaxBodyBytes   = 10 << 20 // 10 MiB
	defaultRequestTimeout = 20 * time.Second
	maxRetryAttempts      = 3
)

// Config controls Fetcher behavior; zero values fall back to spec
// defaults via New.
type Config struct {
	MaxRedirects   int
	PerHostLimit   int
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	UserAgent      string
	RespectRobots  bool

	// DisableSSRFProtection allows dialing loopback/private addresses.
	// Off (protection enabled) by default; tests against httptest
	// fixtures on 127.0.0.1 must set this true, matching the teacher's
	// own opt-out toggle for its bypass client.
	DisableSSRFProtection bool

	// InsecureSkipVerify skips TLS certificate verification. Off by
	// default; acceptance tests against an httptest.NewTLSServer
	// fixture (self-signed cert) must set this true, the same toggle
	// the teacher's own acceptance suite uses for its HTTPS client.
	InsecureSkipVerify bool
}

// Fetcher issues HTTP requests on behalf of Discovery, the Structured
// Extractor, the Pattern Engine, and the Action Discoverer. One Fetcher
// is shared across an entire mapping attempt so the per-host limiter and
// cookie jars apply consistently.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
	limiter *hostLimiter
	policy  RobotsPolicy

	jarMu sync.Mutex
	jars  map[string]http.CookieJar
}

// New builds a Fetcher. policy may be nil, in which case robots.txt is
// not consulted (equivalent to respect_robots=false).
func New(cfg Config, logger *zap.Logger, policy RobotsPolicy) *Fetcher {
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if cfg.PerHostLimit <= 0 {
		cfg.PerHostLimit = defaultPerHostLimit
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Cortex/1.0 (+https://cortexmap.dev/bot)"
	}
	if policy == nil {
		policy = AllowAll{}
	}

	dial := ssrfSafeDialContext
	if cfg.DisableSSRFProtection {
		dial = (&net.Dialer{Timeout: 10 * time.Second}).DialContext
	}
	transport := &http.Transport{
		DialContext: dial,
		Proxy:       http.ProxyFromEnvironment,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	// Negotiate HTTP/2 over TLS; HTTP/1.1 is used automatically for
	// plaintext or hosts that don't advertise h2 via ALPN. A transport-
	// level H2 protocol error is classified as FailureH2Protocol in
	// classify() and retried with backoff over this same transport;
	// there is no HTTP/1.1-only fallback client.
	_ = http2.ConfigureTransport(transport)

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			for _, prev := range via {
				if prev.URL.String() == req.URL.String() {
					return errors.New("redirect loop detected")
				}
			}
			return nil
		},
	}

	return &Fetcher{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		limiter: newHostLimiter(cfg.PerHostLimit),
		policy:  policy,
		jars:    make(map[string]http.CookieJar),
	}
}

// Fetch performs a GET (or HEAD when head=true) against rawURL,
// respecting per-host concurrency, robots.txt, and retrying transient
// failures (timeout/5xx/429) with exponential backoff up to
// maxRetryAttempts.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, head bool) *FetchOutcome {
	outcome := &FetchOutcome{RequestedURL: rawURL}

	if f.cfg.RespectRobots && !f.policy.Allowed(rawURL) {
		outcome.Failure = FailureRobotsDisallow
		return outcome
	}

	host := urlutil.ExtractHost(rawURL)
	if host == "" {
		outcome.Failure = FailureDNS
		outcome.Err = fmt.Errorf("fetch: could not extract host from %q", rawURL)
		return outcome
	}
	f.limiter.setCrawlDelay(host, f.policy.CrawlDelay(host))

	start := time.Now()
	method := http.MethodGet
	if head {
		method = http.MethodHead
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		release, err := f.limiter.Acquire(ctx, host)
		if err != nil {
			outcome.Failure = FailureTimeout
			outcome.Err = err
			return outcome
		}

		status, finalURL, headers, body, err := f.do(ctx, method, rawURL, host)
		release()
		outcome.Attempts = attempt

		if err != nil {
			lastErr = err
			kind := classify(err)
			if !retryable(kind) || attempt == maxRetryAttempts {
				outcome.Failure = kind
				outcome.Err = err
				outcome.Timing = time.Since(start)
				return outcome
			}
			backoff(ctx, attempt)
			continue
		}

		if status == 429 || status >= 500 {
			if attempt < maxRetryAttempts {
				backoff(ctx, attempt)
				continue
			}
		}

		outcome.FinalURL = finalURL
		outcome.Status = status
		outcome.Headers = headers
		outcome.Body = body
		outcome.Timing = time.Since(start)
		if status == 401 || status == 403 {
			outcome.Failure = FailureForbidden
		}
		return outcome
	}

	outcome.Failure = classify(lastErr)
	outcome.Err = lastErr
	outcome.Timing = time.Since(start)
	return outcome
}

func (f *Fetcher) do(ctx context.Context, method, rawURL, host string) (status int, finalURL string, headers map[string][]string, body []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, "", nil, nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml,application/json;q=0.9,*/*;q=0.8")

	client := f.clientFor(host)
	resp, err := client.Do(req)
	if err != nil {
		return 0, "", nil, nil, err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, f.cfg.MaxBodyBytes)
	data, err := io.ReadAll(limited)
	if err != nil {
		return 0, "", nil, nil, fmt.Errorf("%w: %v", errBody, err)
	}

	hdrs := make(map[string][]string, len(resp.Header))
	for k, v := range resp.Header {
		hdrs[k] = v
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	return resp.StatusCode, final, hdrs, data, nil
}

// clientFor returns a client sharing the Fetcher's transport but with a
// per-host cookie jar, so cookies never leak across hosts within one
// mapping attempt (spec.md §5 "Single cookie jar per host per mapping
// attempt").
func (f *Fetcher) clientFor(host string) *http.Client {
	f.jarMu.Lock()
	jar, ok := f.jars[host]
	if !ok {
		jar, _ = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		f.jars[host] = jar
	}
	f.jarMu.Unlock()

	clone := *f.client
	clone.Jar = jar
	return &clone
}

var errBody = errors.New("fetch: response body error")

func classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such host") || strings.Contains(msg, "DNS"):
		return FailureDNS
	case strings.Contains(msg, "certificate") || errors.As(err, new(*tls.CertificateVerificationError)):
		return FailureTLS
	case strings.Contains(msg, "HTTP/2") || strings.Contains(msg, "http2"):
		return FailureH2Protocol
	case strings.Contains(msg, "redirect"):
		return FailureTooManyRedir
	case errors.Is(err, errBody):
		return FailureBody
	default:
		return FailureTimeout
	}
}

func retryable(k FailureKind) bool {
	switch k {
	case FailureTimeout, FailureH2Protocol:
		return true
	default:
		return false
	}
}

func backoff(ctx context.Context, attempt int) {
	d := time.Duration(1<<uint(attempt)) * 200 * time.Millisecond
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// ssrfSafeDialContext resolves the hostname, rejects private/loopback/
// link-local destinations, then dials the first validated IP.
func ssrfSafeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	var d net.Resolver
	ips, err := d.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("DNS resolution failed for %q: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no IP addresses found for %q", host)
	}
	for _, ip := range ips {
		if err := urlutil.ValidateResolvedIP(ip.IP); err != nil {
			return nil, fmt.Errorf("SSRF protection for %q: %w", host, err)
		}
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}

// ParseHost is a thin wrapper kept for callers that only have a raw URL
// and need the host for limiter bookkeeping without constructing a
// Fetcher.
func ParseHost(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Hostname(), nil
}
