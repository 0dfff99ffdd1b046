package cortexd_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// daemon wraps a spawned cortexd process and its socket/data paths.
type daemon struct {
	cmd        *exec.Cmd
	socketPath string
	dataDir    string
}

func startDaemon(extraEnv ...string) *daemon {
	base := filepath.Join(os.TempDir(), "cortexd-acceptance-"+uuid.New().String())
	socketPath := filepath.Join(base, "cortex.sock")
	dataDir := filepath.Join(base, "data")
	Expect(os.MkdirAll(dataDir, 0o755)).To(Succeed())

	cmd := exec.Command(binPath)
	cmd.Env = append(os.Environ(),
		"SOCKET_PATH="+socketPath,
		"DATA_DIR="+dataDir,
		"DISABLE_SSRF_PROTECTION=true",
		"INSECURE_SKIP_VERIFY=true",
		"RESPECT_ROBOTS=true",
	)
	cmd.Env = append(cmd.Env, extraEnv...)

	if os.Getenv("DEBUG") != "" {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
	}

	Expect(cmd.Start()).To(Succeed(), "cortexd should start")

	Eventually(func() error {
		_, err := os.Stat(socketPath)
		return err
	}, 10*time.Second, 100*time.Millisecond).Should(Succeed(), "socket file should appear")

	return &daemon{cmd: cmd, socketPath: socketPath, dataDir: dataDir}
}

func (d *daemon) stop() {
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
		d.cmd.Wait()
	}
	os.RemoveAll(filepath.Dir(d.socketPath))
}

// fixtureDomain strips the https:// scheme from an httptest.Server URL,
// leaving the host:port string the map RPC's domain field expects.
func fixtureDomain(srv *httptest.Server) string {
	return srv.URL[len("https://"):]
}

var _ = Describe("mapping a sitemap-only small blog", func() {
	var (
		d   *daemon
		srv *httptest.Server
		c   *client
	)

	BeforeEach(func() {
		srv = newBlogFixture()
		d = startDaemon()
		var err error
		c, err = dial(d.socketPath)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		if c != nil {
			c.Close()
		}
		srv.Close()
		d.stop()
	})

	It("discovers the sitemap, classifies pages, and supports pathfind/query", func() {
		domain := fixtureDomain(srv)

		var mapResp struct {
			Domain    string `json:"domain"`
			NodeCount int    `json:"node_count"`
			EdgeCount int    `json:"edge_count"`
			Partial   bool   `json:"partial"`
			MapRef    string `json:"map_ref"`
		}
		Expect(c.call("map", map[string]interface{}{"domain": domain}, &mapResp)).To(Succeed())

		Expect(mapResp.NodeCount).To(BeNumerically(">=", 6))
		Expect(mapResp.NodeCount).To(BeNumerically("<=", 10))
		Expect(mapResp.EdgeCount).To(BeNumerically(">=", 4))

		var queryResp struct {
			Matches []struct {
				Index    uint32 `json:"index"`
				URL      string `json:"url"`
				PageType string `json:"page_type"`
			} `json:"matches"`
		}
		Expect(c.call("query", map[string]interface{}{
			"domain":    domain,
			"page_type": []string{"Home"},
		}, &queryResp)).To(Succeed())
		Expect(queryResp.Matches).To(HaveLen(1), "exactly one Home node")
		homeIdx := queryResp.Matches[0].Index

		Expect(c.call("query", map[string]interface{}{
			"domain":    domain,
			"page_type": []string{"Article"},
		}, &queryResp)).To(Succeed())
		Expect(len(queryResp.Matches)).To(BeNumerically(">=", 2))
		Expect(len(queryResp.Matches)).To(BeNumerically("<=", 4))

		articleIdx := queryResp.Matches[0].Index

		var pathResp struct {
			Nodes []uint32 `json:"nodes"`
			Hops  int      `json:"hops"`
		}
		Expect(c.call("pathfind", map[string]interface{}{
			"domain": domain,
			"from":   homeIdx,
			"to":     articleIdx,
		}, &pathResp)).To(Succeed())
		Expect(pathResp.Hops).To(BeNumerically("<=", 2))
	})
})

var _ = Describe("status and clear", func() {
	var (
		d   *daemon
		srv *httptest.Server
		c   *client
	)

	BeforeEach(func() {
		srv = newBlogFixture()
		d = startDaemon()
		var err error
		c, err = dial(d.socketPath)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		if c != nil {
			c.Close()
		}
		srv.Close()
		d.stop()
	})

	It("reports cached maps via status and forgets them via clear", func() {
		domain := fixtureDomain(srv)

		var mapResp struct {
			Domain    string `json:"domain"`
			NodeCount int    `json:"node_count"`
		}
		Expect(c.call("map", map[string]interface{}{"domain": domain}, &mapResp)).To(Succeed())

		var statusResp struct {
			Version    string   `json:"version"`
			UptimeMS   int64    `json:"uptime_ms"`
			CachedMaps []string `json:"cached_maps"`
		}
		Expect(c.call("status", map[string]interface{}{}, &statusResp)).To(Succeed())
		Expect(statusResp.Version).ToNot(BeEmpty())
		Expect(statusResp.CachedMaps).To(ContainElement(domain))

		Expect(c.call("clear", map[string]interface{}{"domain": domain}, nil)).To(Succeed())

		Expect(c.call("status", map[string]interface{}{}, &statusResp)).To(Succeed())
		Expect(statusResp.CachedMaps).ToNot(ContainElement(domain))
	})
})

var _ = Describe("deadline partial mapping", func() {
	var (
		d   *daemon
		srv *httptest.Server
		c   *client
	)

	AfterEach(func() {
		if c != nil {
			c.Close()
		}
		if srv != nil {
			srv.Close()
		}
		if d != nil {
			d.stop()
		}
	})

	It("seals a partial Map when max_time_ms is exceeded", func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "User-agent: *\nAllow: /\n")
		})
		mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			var b []byte
			b = append(b, []byte(`<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)...)
			for i := 0; i < 200; i++ {
				b = append(b, []byte(fmt.Sprintf(`<url><loc>https://%s/slow/%d</loc><priority>0.5</priority></url>`, r.Host, i))...)
			}
			b = append(b, []byte(`</urlset>`)...)
			w.Write(b)
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
			fmt.Fprint(w, `<html><head><title>Slow home</title></head><body><h1>slow</h1></body></html>`)
		})
		mux.HandleFunc("/slow/", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
			fmt.Fprintf(w, `<html><head><title>%s</title></head><body><article><h1>%s</h1><p>content</p></article></body></html>`, r.URL.Path, r.URL.Path)
		})

		srv = httptest.NewTLSServer(mux)
		d = startDaemon()
		var err error
		c, err = dial(d.socketPath)
		Expect(err).ToNot(HaveOccurred())

		domain := fixtureDomain(srv)

		var mapResp struct {
			NodeCount int  `json:"node_count"`
			Partial   bool `json:"partial"`
		}
		Expect(c.call("map", map[string]interface{}{
			"domain":      domain,
			"max_time_ms": 2000,
			"fresh":       true,
		}, &mapResp)).To(Succeed())

		Expect(mapResp.Partial).To(BeTrue())
		Expect(mapResp.NodeCount).To(BeNumerically(">", 0))
	})
})
