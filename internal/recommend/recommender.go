package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dermaCareAi/internal/catalog"
	"dermaCareAi/internal/hair"
	"dermaCareAi/internal/llm"
	"dermaCareAi/internal/prompts"
	"dermaCareAi/internal/skin"
)

// Product is a recommended skincare product.
type Product struct {
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Price    string `json:"price"`
	Category string `json:"category"`
	URL      string `json:"url"`
	Reason   string `json:"reason"`
	ImageURL string `json:"image_url,omitempty"`
}

// HairProduct is a recommended haircare product.
type HairProduct struct {
	Name          string `json:"name"`
	Brand         string `json:"brand"`
	Type          string `json:"type"`
	PriceEstimate string `json:"price_estimate"`
	Reason        string `json:"reason"`
	ImageURL      string `json:"image_url,omitempty"`
}

// Recommender produces product recommendations from analysis profiles.
type Recommender interface {
	Skincare(ctx context.Context, profile skin.Profile) ([]Product, error)
	Haircare(ctx context.Context, profile hair.Profile) ([]HairProduct, error)
}

// How many catalog rows get embedded into a skincare prompt.
const catalogSampleSize = 50

const llmTemperature = 0.2

// NewLLM wires the recommender to a chat model with a static fallback.
func NewLLM(client llm.Client, cat *catalog.Catalog) Recommender {
	return &llmRecommender{
		client:   client,
		catalog:  cat,
		fallback: staticRecommender{},
	}
}

type llmRecommender struct {
	client   llm.Client
	catalog  *catalog.Catalog
	fallback Recommender
}

func (r *llmRecommender) Skincare(ctx context.Context, profile skin.Profile) ([]Product, error) {
	preview := ""
	if r.catalog != nil && r.catalog.Len() > 0 {
		preview = catalog.PreviewCSV(r.catalog.Sample(catalogSampleSize))
	}

	system, user := prompts.BuildSkincarePrompts(profile, preview)
	content, err := r.client.ChatCompletion(ctx, []llm.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, llmTemperature)
	if err != nil {
		return r.fallback.Skincare(ctx, profile)
	}

	products, parseErr := parseSkincare(content)
	if parseErr != nil {
		return r.fallback.Skincare(ctx, profile)
	}
	return products, nil
}

func (r *llmRecommender) Haircare(ctx context.Context, profile hair.Profile) ([]HairProduct, error) {
	system, user := prompts.BuildHaircarePrompts(profile)
	content, err := r.client.ChatCompletion(ctx, []llm.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, llmTemperature)
	if err != nil {
		return r.fallback.Haircare(ctx, profile)
	}

	products, parseErr := parseHaircare(content)
	if parseErr != nil {
		return r.fallback.Haircare(ctx, profile)
	}
	return products, nil
}

func parseSkincare(content string) ([]Product, error) {
	entries, err := parseArray(content)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(entries))
	for _, entry := range entries {
		product := Product{
			Name:     stringField(entry, "name"),
			Brand:    stringField(entry, "brand"),
			Price:    stringField(entry, "price"),
			Category: strings.ToLower(stringField(entry, "category")),
			URL:      stringField(entry, "url"),
			Reason:   stringField(entry, "reason"),
		}
		if product.Name == "" {
			continue
		}
		products = append(products, product)
		if len(products) == prompts.SkincareProductCount {
			break
		}
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("no usable products in response")
	}
	return products, nil
}

func parseHaircare(content string) ([]HairProduct, error) {
	entries, err := parseArray(content)
	if err != nil {
		return nil, err
	}

	products := make([]HairProduct, 0, len(entries))
	for _, entry := range entries {
		product := HairProduct{
			Name:          stringField(entry, "name"),
			Brand:         stringField(entry, "brand"),
			Type:          strings.ToLower(stringField(entry, "type")),
			PriceEstimate: stringField(entry, "price_estimate"),
			Reason:        stringField(entry, "reason"),
		}
		if product.Name == "" {
			continue
		}
		products = append(products, product)
		if len(products) == prompts.HaircareProductCount {
			break
		}
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("no usable products in response")
	}
	return products, nil
}

// parseArray tolerates prose and markdown fences around the JSON payload.
func parseArray(content string) ([]map[string]any, error) {
	var entries []map[string]any
	if err := json.Unmarshal([]byte(content), &entries); err == nil {
		return entries, nil
	}

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("could not locate JSON array in response")
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &entries); err != nil {
		return nil, fmt.Errorf("could not parse JSON array: %w", err)
	}
	return entries, nil
}

// stringField coerces models that return numbers where strings were asked for.
func stringField(entry map[string]any, key string) string {
	switch v := entry[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%.2f", v)
	default:
		return ""
	}
}
