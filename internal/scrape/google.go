package scrape

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/gocolly/colly/v2"
)

const googleImagesBase = "https://www.google.com"

// GoogleImages resolves product images from a Google image search. The
// results page is rendered from embedded JSON, so this sweeps the raw
// markup for image URLs instead of relying on selectors.
type GoogleImages struct {
	userAgent string

	// BaseURL is overridable in tests.
	BaseURL string
}

// NewGoogleImages constructs the image search resolver.
func NewGoogleImages(userAgent string) *GoogleImages {
	return &GoogleImages{
		userAgent: userAgent,
		BaseURL:   googleImagesBase,
	}
}

var embeddedImagePattern = regexp.MustCompile(`\["(https?://[^"]+?\.(?:jpe?g|png|webp))",\d+,\d+\]`)

func (g *GoogleImages) Resolve(ctx context.Context, query Query) (Result, error) {
	searchTerm := strings.TrimSpace(fmt.Sprintf("%s %s product", query.Brand, query.Name))
	if searchTerm == "product" {
		return Result{}, ErrNoImage
	}

	searchURL := fmt.Sprintf("%s/search?q=%s&tbm=isch", strings.TrimRight(g.BaseURL, "/"), url.QueryEscape(searchTerm))

	c := colly.NewCollector(
		colly.UserAgent(g.userAgent),
		colly.StdlibContext(ctx),
	)

	var body string
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})

	if err := c.Visit(searchURL); err != nil {
		return Result{}, fmt.Errorf("scrape: visit google images: %w", err)
	}

	for _, match := range embeddedImagePattern.FindAllStringSubmatch(body, -1) {
		if imageURL := normalizeImageURL(match[1]); imageURL != "" && !strings.Contains(imageURL, "gstatic.com") {
			return Result{ImageURL: imageURL, ProductURL: query.ProductURL}, nil
		}
	}
	for _, match := range htmlImagePattern.FindAllString(body, -1) {
		if imageURL := normalizeImageURL(match); imageURL != "" && !strings.Contains(imageURL, "gstatic.com") && !strings.Contains(imageURL, "google.com") {
			return Result{ImageURL: imageURL, ProductURL: query.ProductURL}, nil
		}
	}
	return Result{}, ErrNoImage
}
