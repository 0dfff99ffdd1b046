package discovery

// CommonPaths is a curated seed list of paths that commonly exist on
// sites regardless of sitemap/robots presence. Discovery issues HEAD
// scans against these and keeps the ones that resolve to 2xx or 3xx.
var CommonPaths = []string{
	"/", "/about", "/about-us", "/contact", "/contact-us", "/faq", "/help",
	"/products", "/product", "/shop", "/store", "/catalog", "/catalogue",
	"/collections", "/category", "/categories", "/cart", "/checkout",
	"/account", "/login", "/signin", "/sign-in", "/register", "/signup",
	"/sign-up", "/profile", "/dashboard", "/admin", "/search",
	"/blog", "/news", "/articles", "/posts", "/press", "/media",
	"/docs", "/documentation", "/api", "/api-docs", "/developers",
	"/pricing", "/plans", "/features", "/terms", "/terms-of-service",
	"/privacy", "/privacy-policy", "/cookies", "/returns", "/shipping",
	"/support", "/careers", "/jobs", "/team", "/company", "/partners",
	"/locations", "/stores", "/events", "/gallery", "/portfolio",
	"/testimonials", "/reviews", "/sitemap.xml", "/feed", "/rss",
	"/rss.xml", "/atom.xml", "/feed.xml", "/robots.txt",
}
