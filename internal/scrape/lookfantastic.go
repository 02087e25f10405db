package scrape

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/gocolly/colly/v2"
)

const lookFantasticBase = "https://www.lookfantastic.com"

// LookFantastic resolves product images from lookfantastic.com, first by
// scraping the product page when the query links there and otherwise by
// scraping the retailer's search results.
type LookFantastic struct {
	userAgent string

	// BaseURL is overridable in tests.
	BaseURL string
}

// NewLookFantastic constructs the retailer resolver.
func NewLookFantastic(userAgent string) *LookFantastic {
	return &LookFantastic{
		userAgent: userAgent,
		BaseURL:   lookFantasticBase,
	}
}

var (
	cdnImagePattern  = regexp.MustCompile(`https://static\.thcdn\.com/[^"'\s\\)]+`)
	htmlImagePattern = regexp.MustCompile(`https?://[^"'\s\\)]+\.(?:jpe?g|png|webp)`)
)

// Resolve scrapes the retailer for a product image. Search results also
// yield the product page the image belongs to.
func (lf *LookFantastic) Resolve(ctx context.Context, query Query) (Result, error) {
	if pageURL := lf.productPageURL(query); pageURL != "" {
		if result, err := lf.scrape(ctx, pageURL); err == nil && result.ImageURL != "" {
			result.ProductURL = pageURL
			return result, nil
		}
	}

	searchTerm := strings.TrimSpace(fmt.Sprintf("%s %s", query.Brand, query.Name))
	if searchTerm == "" {
		return Result{}, ErrNoImage
	}

	searchURL := fmt.Sprintf("%s/search?q=%s", strings.TrimRight(lf.BaseURL, "/"), url.QueryEscape(searchTerm))
	result, err := lf.scrape(ctx, searchURL)
	if err != nil {
		return Result{}, err
	}
	if result.ProductURL == "" {
		result.ProductURL = query.ProductURL
	}
	return result, nil
}

// productPageURL returns the query's product URL when it points at the retailer.
func (lf *LookFantastic) productPageURL(query Query) string {
	raw := strings.TrimSpace(query.ProductURL)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}

	base, err := url.Parse(lf.BaseURL)
	if err != nil {
		return ""
	}
	if !strings.Contains(parsed.Host, "lookfantastic") && parsed.Host != base.Host {
		return ""
	}
	return raw
}

func (lf *LookFantastic) scrape(ctx context.Context, pageURL string) (Result, error) {
	c := colly.NewCollector(
		colly.UserAgent(lf.userAgent),
		colly.StdlibContext(ctx),
	)

	var candidates []string
	add := func(src string) {
		if cleaned := normalizeImageURL(src); cleaned != "" {
			candidates = append(candidates, cleaned)
		}
	}

	selectors := []string{
		".productBlock img",
		".productItem img",
		`[data-bind*="product"] img`,
		`a[href*="/products/"] img`,
	}
	for _, selector := range selectors {
		c.OnHTML(selector, func(e *colly.HTMLElement) {
			add(e.Attr("src"))
			add(e.Attr("data-src"))
			add(e.Attr("data-lazy-src"))
		})
	}

	var productURL string
	c.OnHTML(`a[href*="/products/"]`, func(e *colly.HTMLElement) {
		if productURL == "" {
			productURL = e.Request.AbsoluteURL(e.Attr("href"))
		}
	})

	c.OnHTML(`meta[property="og:image"]`, func(e *colly.HTMLElement) {
		add(e.Attr("content"))
	})

	// Markup changes often; sweep the raw HTML as a last resort.
	var body string
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})

	if err := c.Visit(pageURL); err != nil {
		return Result{}, fmt.Errorf("scrape: visit %s: %w", pageURL, err)
	}

	if best := pickBest(candidates); best != "" {
		return Result{ImageURL: best, ProductURL: productURL}, nil
	}

	for _, match := range cdnImagePattern.FindAllString(body, -1) {
		add(match)
	}
	for _, match := range htmlImagePattern.FindAllString(body, -1) {
		add(match)
	}
	if best := pickBest(candidates); best != "" {
		return Result{ImageURL: best, ProductURL: productURL}, nil
	}
	return Result{}, ErrNoImage
}

// pickBest prefers retailer CDN product shots over everything else.
func pickBest(candidates []string) string {
	var fallback string
	for _, candidate := range candidates {
		if strings.Contains(candidate, "thcdn.com") {
			return candidate
		}
		if fallback == "" {
			fallback = candidate
		}
	}
	return fallback
}

// normalizeImageURL unwraps proxy parameters and filters out page
// furniture such as icons and logos.
func normalizeImageURL(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}

	// Image proxies embed the real URL in a url= parameter.
	if idx := strings.Index(src, "url="); idx >= 0 {
		if unwrapped, err := url.QueryUnescape(src[idx+len("url="):]); err == nil {
			if cut := strings.IndexAny(unwrapped, "&"); cut >= 0 {
				unwrapped = unwrapped[:cut]
			}
			src = unwrapped
		}
	}

	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return ""
	}

	lower := strings.ToLower(src)
	for _, junk := range []string{"icon", "logo", "sprite", "placeholder", "avatar", "payment", "flag", "badge", "thumb", "small"} {
		if strings.Contains(lower, junk) {
			return ""
		}
	}

	if strings.Contains(lower, "thcdn.com") {
		return src
	}
	if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") ||
		strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".webp") {
		return src
	}
	return ""
}
