package bgremove

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RembgRemover calls a self-hosted rembg server.
type RembgRemover struct {
	baseURL string
	client  *http.Client
}

// Alpha matting smooths cutout edges around fine detail such as pump
// dispensers and hair strands.
const (
	alphaForegroundThreshold = 240
	alphaBackgroundThreshold = 10
	alphaErodeSize           = 10
)

// NewRembg wires a rembg client, or nil when no server URL is set.
func NewRembg(baseURL string) *RembgRemover {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &RembgRemover{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *RembgRemover) Remove(ctx context.Context, photo []byte) ([]byte, error) {
	if r == nil {
		return nil, ErrUnavailable
	}
	if len(photo) == 0 {
		return nil, fmt.Errorf("bgremove: empty image")
	}

	endpoint := fmt.Sprintf("%s/api/remove?a=true&af=%d&ab=%d&ae=%d",
		r.baseURL, alphaForegroundThreshold, alphaBackgroundThreshold, alphaErodeSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(photo))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bgremove: rembg request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bgremove: rembg status %d", resp.StatusCode)
	}

	result, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bgremove: read rembg response: %w", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("bgremove: rembg returned empty body")
	}
	return result, nil
}
