package patterndb

// FieldRule is one entry in the declarative selector/regex rule table:
// "if this CSS selector exists on a page fingerprinted to this platform
// (or any platform, when empty), extract target_field with the given
// confidence." Generic rules (empty platform) are evaluated last so
// platform-specific rules win the confidence comparison in Apply.
type FieldRule struct {
	Selector   string
	Field      string
	Platform   Platform // "" means applies to every platform
	Confidence float32
}

// Rules is the closed rule table. Selector-based rules run through
// goquery; Apply never lets a rule overwrite a field Layer 1 already
// populated with equal or higher confidence.
var Rules = []FieldRule{
	{Selector: ".price, .product-price, [data-price]", Field: "price", Platform: PlatformShopify, Confidence: 0.8},
	{Selector: ".woocommerce-Price-amount", Field: "price", Platform: PlatformWooCommerce, Confidence: 0.8},
	{Selector: ".price-box .price", Field: "price", Platform: PlatformMagento, Confidence: 0.8},
	{Selector: ".product-single__price, .product__price", Field: "price", Platform: PlatformShopify, Confidence: 0.75},

	{Selector: ".star-rating, .rating", Field: "rating", Platform: PlatformWooCommerce, Confidence: 0.6},
	{Selector: "[data-rating], .product-rating", Field: "rating", Confidence: 0.5},

	{Selector: ".availability, .stock", Field: "availability", Platform: PlatformWooCommerce, Confidence: 0.6},
	{Selector: ".product-form__buy-buttons [name=add]", Field: "availability", Platform: PlatformShopify, Confidence: 0.5},

	{Selector: ".breadcrumb, .breadcrumbs, nav[aria-label=breadcrumb]", Field: "breadcrumb", Confidence: 0.4},
	{Selector: ".post-content, article .entry-content", Field: "article_body", Platform: PlatformWordPress, Confidence: 0.5},

	// generic fallbacks, evaluated after every platform-specific rule
	{Selector: "[itemprop=price], .price", Field: "price", Confidence: 0.3},
	{Selector: "[itemprop=ratingValue]", Field: "rating", Confidence: 0.3},
}
