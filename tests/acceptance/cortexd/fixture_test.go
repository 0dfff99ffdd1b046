package cortexd_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
)

// newBlogFixture starts a TLS fixture server matching spec.md §8
// scenario 1 (sitemap-only small blog): a sitemap.xml listing 7 URLs at
// priorities {1.0, 0.5, 0.5, 0.8, 0.8, 0.8, 0.6}, a home page with 4 nav
// links and 3 article links, a permissive robots.txt.
func newBlogFixture() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nAllow: /\n")
	})

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		host := r.Host
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://%[1]s/</loc><priority>1.0</priority></url>
  <url><loc>https://%[1]s/about</loc><priority>0.5</priority></url>
  <url><loc>https://%[1]s/contact</loc><priority>0.5</priority></url>
  <url><loc>https://%[1]s/articles/1</loc><priority>0.8</priority></url>
  <url><loc>https://%[1]s/articles/2</loc><priority>0.8</priority></url>
  <url><loc>https://%[1]s/articles/3</loc><priority>0.8</priority></url>
  <url><loc>https://%[1]s/blog</loc><priority>0.6</priority></url>
</urlset>`, host)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<!DOCTYPE html>
<html><head><title>Small Blog</title></head>
<body>
<nav>
  <a href="/">Home</a>
  <a href="/about">About</a>
  <a href="/contact">Contact</a>
  <a href="/blog">Blog</a>
</nav>
<main>
  <h1>Welcome to the Small Blog</h1>
  <a href="/articles/1">First post</a>
  <a href="/articles/2">Second post</a>
  <a href="/articles/3">Third post</a>
</main>
</body></html>`)
	})

	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<!DOCTYPE html><html><head><title>About</title></head>
<body><h1>About us</h1><p>A small blog about small things.</p></body></html>`)
	})

	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<!DOCTYPE html><html><head><title>Contact</title></head>
<body><h1>Contact us</h1>
<form action="/contact/submit" method="post">
  <input type="email" name="email">
  <button type="submit">Send</button>
</form></body></html>`)
	})

	mux.HandleFunc("/blog", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<!DOCTYPE html><html><head><title>Blog</title></head>
<body><h1>Blog index</h1>
<a href="/articles/1">First post</a>
<a href="/articles/2">Second post</a>
<a href="/articles/3">Third post</a>
</body></html>`)
	})

	for i := 1; i <= 3; i++ {
		path := fmt.Sprintf("/articles/%d", i)
		title := fmt.Sprintf("Post number %d", i)
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>%[1]s</title></head>
<body><article>
<h1>%[1]s</h1>
<p>Body text for this blog post, written for an acceptance test fixture.</p>
</article></body></html>`, title)
		})
	}

	return httptest.NewTLSServer(mux)
}
