package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"dermaCareAi/internal/scrape"
)

const maxRemoteImageBytes = 15 * 1024 * 1024

var imageClient = &http.Client{Timeout: 30 * time.Second}

// errNotImage marks downloads whose payload is not image data.
var errNotImage = errors.New("url does not point to an image")

// ProductImageRequest identifies a product to look up.
type ProductImageRequest struct {
	Name  string `json:"name"`
	Brand string `json:"brand"`
	URL   string `json:"url,omitempty"`
}

// ProductImage handles POST /api/products/image and returns the resolved
// image URL together with the product page it was found on.
func (h Handler) ProductImage(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseProductRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.Resolver.Resolve(r.Context(), query)
	if err != nil {
		log.Printf("resolve product image: %v", err)
		http.Error(w, "no image found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"image_url":   result.ImageURL,
		"product_url": result.ProductURL,
	})
}

// ProductImageProcessed handles POST /api/products/image/processed: the
// image is resolved, downloaded and returned with its background removed.
func (h Handler) ProductImageProcessed(w http.ResponseWriter, r *http.Request) {
	if !h.Remover.Available() {
		http.Error(w, "background removal not configured", http.StatusServiceUnavailable)
		return
	}

	query, err := h.parseProductRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.Resolver.Resolve(r.Context(), query)
	if err != nil {
		log.Printf("resolve product image: %v", err)
		http.Error(w, "no image found", http.StatusNotFound)
		return
	}

	photo, err := h.fetchImage(r.Context(), result.ImageURL)
	if err != nil {
		h.writeFetchError(w, result.ImageURL, err)
		return
	}

	processed, _ := h.Remover.RemoveOrOriginal(r.Context(), photo)
	encodeImageResponse(w, processed)
}

// RemoveBackgroundRequest carries the source image for background removal.
type RemoveBackgroundRequest struct {
	ImageURL string `json:"imageUrl"`
}

// RemoveBackground handles POST /api/remove-background. The endpoint
// refuses to run without a configured remover; when a configured remover
// fails mid-request the original image is returned so callers always get
// something to display.
func (h Handler) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	if !h.Remover.Available() {
		http.Error(w, "background removal not configured", http.StatusServiceUnavailable)
		return
	}

	var req RemoveBackgroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if req.ImageURL == "" {
		http.Error(w, "imageUrl is required", http.StatusBadRequest)
		return
	}

	photo, err := h.fetchImage(r.Context(), req.ImageURL)
	if err != nil {
		h.writeFetchError(w, req.ImageURL, err)
		return
	}

	processed, _ := h.Remover.RemoveOrOriginal(r.Context(), photo)
	encodeImageResponse(w, processed)
}

func (h Handler) writeFetchError(w http.ResponseWriter, imageURL string, err error) {
	if errors.Is(err, errNotImage) {
		http.Error(w, fmt.Sprintf("%s does not point to an image", imageURL), http.StatusBadRequest)
		return
	}
	log.Printf("fetch image %s: %v", imageURL, err)
	http.Error(w, "could not download image", http.StatusBadGateway)
}

func (h Handler) parseProductRequest(r *http.Request) (scrape.Query, error) {
	var req ProductImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return scrape.Query{}, fmt.Errorf("invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Brand = strings.TrimSpace(req.Brand)
	if req.Name == "" && req.Brand == "" {
		return scrape.Query{}, fmt.Errorf("name or brand is required")
	}
	return scrape.Query{
		Name:       req.Name,
		Brand:      req.Brand,
		ProductURL: strings.TrimSpace(req.URL),
	}, nil
}

func (h Handler) userAgent() string {
	if h.UserAgent != "" {
		return h.UserAgent
	}
	return scrape.DefaultUserAgent
}

func (h Handler) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", h.userAgent())
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := imageClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, imageURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxRemoteImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxRemoteImageBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image from %s", imageURL)
	}
	if contentType := http.DetectContentType(data); !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%s served %s: %w", imageURL, contentType, errNotImage)
	}
	return data, nil
}
