package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"dermaCareAi/internal/bgremove"
	"dermaCareAi/internal/events"
	"dermaCareAi/internal/imaging"
	"dermaCareAi/internal/media"
	"dermaCareAi/internal/scrape"
	"dermaCareAi/internal/storage"
)

// Status values used in pipeline updates.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Processed images larger than this edge get downscaled before upload.
const maxUploadEdge = 1500

const maxDownloadBytes = 15 * 1024 * 1024

// Pipeline resolves, cleans up and stores product images for an analysis.
type Pipeline struct {
	resolver scrape.Resolver
	remover  *bgremove.Chain
	uploader media.Uploader
	store    storage.Store
	broker   *events.Broker
	client   *http.Client

	// UserAgent is sent on image downloads. Retailer CDNs reject the
	// Go default agent.
	UserAgent string

	// delay spaces out retailer lookups; overridable in tests.
	delay func() time.Duration
}

// New wires a product image pipeline.
func New(resolver scrape.Resolver, remover *bgremove.Chain, uploader media.Uploader, store storage.Store, broker *events.Broker) *Pipeline {
	return &Pipeline{
		resolver:  resolver,
		remover:   remover,
		uploader:  uploader,
		store:     store,
		broker:    broker,
		client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: scrape.DefaultUserAgent,
		delay: func() time.Duration {
			return time.Duration(1000+rand.Intn(2000)) * time.Millisecond
		},
	}
}

// Run processes every product attached to the analysis sequentially,
// publishing a status event after each product so clients can stream
// progress.
func (p *Pipeline) Run(ctx context.Context, analysisID string) error {
	analysis, err := p.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("pipeline: load analysis: %w", err)
	}

	status := analysis.Status
	status.Images = StatusProcessing
	p.publish(ctx, analysisID, analysis.Products, status)

	failures := 0
	for idx := range analysis.Products {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if idx > 0 {
			select {
			case <-time.After(p.delay()):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := p.processProduct(ctx, analysis.Kind, idx, &analysis.Products[idx]); err != nil {
			log.Printf("pipeline: analysis %s product %q: %v", analysisID, analysis.Products[idx].Name, err)
			failures++
		}
		p.publish(ctx, analysisID, analysis.Products, status)
	}

	if failures == len(analysis.Products) && len(analysis.Products) > 0 {
		status.Images = StatusFailed
	} else {
		status.Images = StatusDone
	}
	p.publish(ctx, analysisID, analysis.Products, status)
	return nil
}

func (p *Pipeline) processProduct(ctx context.Context, kind string, idx int, product *storage.Product) error {
	imageURL := product.ImageURL
	if imageURL == "" {
		resolved, err := p.resolver.Resolve(ctx, scrape.Query{
			Name:       product.Name,
			Brand:      product.Brand,
			ProductURL: product.URL,
		})
		if err != nil {
			return fmt.Errorf("resolve image: %w", err)
		}
		imageURL = resolved.ImageURL
		product.ImageURL = resolved.ImageURL
		if product.URL == "" && resolved.ProductURL != "" {
			product.URL = resolved.ProductURL
		}
	}

	// Placeholder services serve generated stand-ins; keep the URL as-is
	// instead of downloading and cutting out a synthetic image.
	if isPlaceholderURL(imageURL) {
		return nil
	}

	photo, err := p.download(ctx, imageURL)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}

	processed, removed := p.remover.RemoveOrOriginal(ctx, photo)
	encoded, err := p.encodeForUpload(processed)
	if err != nil {
		return fmt.Errorf("encode image: %w", err)
	}

	filename := fmt.Sprintf("rec_%d_%s_%s_%s.png", idx+1, productCategory(kind, product), product.Brand, product.Name)
	result, err := p.uploader.Upload(ctx, media.UploadInput{
		Filename:    filename,
		ContentType: "image/png",
		Body:        bytes.NewReader(encoded),
		Size:        int64(len(encoded)),
	})
	if err != nil {
		return fmt.Errorf("upload image: %w", err)
	}

	product.ImageKey = result.Key
	if result.URL != "" {
		product.ImageURL = result.URL
	}
	product.Processed = removed
	return nil
}

func productCategory(kind string, product *storage.Product) string {
	if product.Category != "" {
		return product.Category
	}
	if kind == storage.KindHair {
		return "haircare"
	}
	return "skincare"
}

// encodeForUpload re-encodes the image as PNG, downscaling oversized
// originals. Cutouts keep their alpha channel untouched.
func (p *Pipeline) encodeForUpload(data []byte) ([]byte, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNG(imaging.Downscale(img, maxUploadEdge))
}

func isPlaceholderURL(imageURL string) bool {
	return strings.Contains(imageURL, "placeholder.com") || strings.Contains(imageURL, "placehold.co")
}

func (p *Pipeline) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, imageURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxDownloadBytes)
	}
	if contentType := http.DetectContentType(data); !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%s served %s, not an image", imageURL, contentType)
	}
	return data, nil
}

// publish persists the latest state and notifies SSE subscribers. Store
// failures are logged but never abort the pipeline.
func (p *Pipeline) publish(ctx context.Context, analysisID string, products []storage.Product, status storage.Status) {
	if _, err := p.store.UpdateProducts(ctx, analysisID, products, status); err != nil {
		log.Printf("pipeline: persist analysis %s: %v", analysisID, err)
	}
	if p.broker != nil {
		p.broker.Publish(events.Event{AnalysisID: analysisID, Status: status})
	}
}
