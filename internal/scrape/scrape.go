package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Query identifies the product whose image should be located.
type Query struct {
	Name       string
	Brand      string
	ProductURL string
}

// Result carries the located image together with the product page it was
// found on, when the resolver discovered one.
type Result struct {
	ImageURL   string
	ProductURL string
}

// Resolver locates a product image for a query.
type Resolver interface {
	Resolve(ctx context.Context, query Query) (Result, error)
}

// ErrNoImage is returned when a resolver finds nothing usable.
var ErrNoImage = fmt.Errorf("scrape: no product image found")

// Config encapsulates resolver construction.
type Config struct {
	UserAgent            string
	CacheTTL             time.Duration
	LookFantasticBaseURL string
	GoogleBaseURL        string
}

// DefaultUserAgent is a browser-like agent string. Retailer CDNs reject
// the Go default agent outright.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// NewResolver wires the full lookup chain: retailer search, the product
// page itself, a Google Images sweep and finally a generated placeholder.
func NewResolver(cfg Config) Resolver {
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	lf := NewLookFantastic(ua)
	if cfg.LookFantasticBaseURL != "" {
		lf.BaseURL = cfg.LookFantasticBaseURL
	}
	google := NewGoogleImages(ua)
	if cfg.GoogleBaseURL != "" {
		google.BaseURL = cfg.GoogleBaseURL
	}

	chain := NewChain(lf, google, NewPlaceholder())
	return wrapWithCache(chain, cfg.CacheTTL)
}

// NewChain tries each resolver in order and returns the first hit.
func NewChain(resolvers ...Resolver) Resolver {
	return chainResolver(resolvers)
}

type chainResolver []Resolver

func (c chainResolver) Resolve(ctx context.Context, query Query) (Result, error) {
	var lastErr error = ErrNoImage
	for _, resolver := range c {
		result, err := resolver.Resolve(ctx, query)
		if err == nil && result.ImageURL != "" {
			return result, nil
		}
		if err != nil {
			lastErr = err
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
	}
	return Result{}, lastErr
}

func wrapWithCache(base Resolver, ttl time.Duration) Resolver {
	if ttl <= 0 {
		return base
	}

	return &cachedResolver{
		base:    base,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

type cachedResolver struct {
	base    Resolver
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result  Result
	expires time.Time
}

func (c *cachedResolver) Resolve(ctx context.Context, query Query) (Result, error) {
	key := cacheKey(query)
	now := time.Now()

	c.mu.RLock()
	if entry, ok := c.entries[key]; ok && entry.expires.After(now) {
		c.mu.RUnlock()
		return entry.result, nil
	}
	c.mu.RUnlock()

	result, err := c.base.Resolve(ctx, query)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{result: result, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return result, nil
}

func cacheKey(query Query) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(query.Brand)),
		strings.ToLower(strings.TrimSpace(query.Name)),
		strings.TrimSpace(query.ProductURL),
	}
	return strings.Join(parts, "|")
}

// NewPlaceholder returns a resolver that always succeeds with a
// generated placeholder image. It terminates every chain.
func NewPlaceholder() Resolver {
	return placeholderResolver{}
}

type placeholderResolver struct{}

func (placeholderResolver) Resolve(_ context.Context, query Query) (Result, error) {
	label := strings.TrimSpace(fmt.Sprintf("%s %s", query.Brand, query.Name))
	if label == "" {
		label = "Product"
	}
	if len(label) > 30 {
		label = label[:30]
	}
	return Result{
		ImageURL:   fmt.Sprintf("https://via.placeholder.com/300x300/f0f0f0/333333?text=%s", url.QueryEscape(label)),
		ProductURL: query.ProductURL,
	}, nil
}
