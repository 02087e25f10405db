package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration values.
type Config struct {
	Port        string
	DatabaseURL string
	CatalogPath string
	Media       MediaConfig
	LLM         LLMConfig
	Scrape      ScrapeConfig
	Bgremove    BgremoveConfig
}

// MediaConfig describes S3/media related configuration.
type MediaConfig struct {
	Bucket         string
	Region         string
	Endpoint       string
	PublicURL      string
	KeyPrefix      string
	ForcePathStyle bool
	LocalDir       string
	LocalPublicURL string
}

// LLMConfig describes the chat and vision model providers.
type LLMConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	HairModel    string
	OpenAIAPIKey string
	OpenAIModel  string
}

// ScrapeConfig controls the product image lookup chain.
type ScrapeConfig struct {
	UserAgent            string
	CacheTTL             time.Duration
	LookFantasticBaseURL string
	GoogleBaseURL        string
}

// BgremoveConfig describes the background removal backends.
type BgremoveConfig struct {
	VertexProjectID          string
	VertexLocation           string
	VertexModel              string
	VertexAPIKey             string
	VertexServiceAccount     string
	VertexServiceAccountJSON string
	RembgURL                 string
}

// FromEnv loads configuration from environment variables and applies defaults.
func FromEnv() Config {
	cfg := Config{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		CatalogPath: os.Getenv("PRODUCT_CATALOG_PATH"),
		Media: MediaConfig{
			Bucket:         os.Getenv("S3_BUCKET"),
			Region:         os.Getenv("S3_REGION"),
			Endpoint:       os.Getenv("S3_ENDPOINT"),
			PublicURL:      os.Getenv("S3_PUBLIC_URL"),
			KeyPrefix:      strings.Trim(os.Getenv("S3_KEY_PREFIX"), "/"),
			ForcePathStyle: getenvBool("S3_FORCE_PATH_STYLE", false),
			LocalDir:       os.Getenv("MEDIA_DIR"),
			LocalPublicURL: os.Getenv("MEDIA_PUBLIC_URL"),
		},
		LLM: LLMConfig{
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  os.Getenv("GEMINI_MODEL"),
			HairModel:    os.Getenv("HAIR_MODEL"),
			OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:  os.Getenv("OPENAI_MODEL"),
		},
		Scrape: ScrapeConfig{
			UserAgent:            os.Getenv("SCRAPE_USER_AGENT"),
			CacheTTL:             getenvDuration("SCRAPE_CACHE_TTL", time.Hour),
			LookFantasticBaseURL: os.Getenv("LOOKFANTASTIC_BASE_URL"),
			GoogleBaseURL:        os.Getenv("GOOGLE_IMAGES_BASE_URL"),
		},
		Bgremove: BgremoveConfig{
			VertexProjectID:          os.Getenv("VERTEX_PROJECT_ID"),
			VertexLocation:           getenv("VERTEX_LOCATION", "us-central1"),
			VertexModel:              os.Getenv("VERTEX_MODEL"),
			VertexAPIKey:             os.Getenv("VERTEX_API_KEY"),
			VertexServiceAccount:     os.Getenv("VERTEX_SERVICE_ACCOUNT"),
			VertexServiceAccountJSON: os.Getenv("VERTEX_SERVICE_ACCOUNT_JSON"),
			RembgURL:                 os.Getenv("REMBG_URL"),
		},
	}

	if cfg.Port == "" {
		log.Fatal("APP_PORT cannot be empty")
	}

	return cfg
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getenvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}

	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}

	return parsed
}
