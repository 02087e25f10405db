package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dermaCareAi/internal/analyses"
	"dermaCareAi/internal/bgremove"
	"dermaCareAi/internal/catalog"
	"dermaCareAi/internal/config"
	"dermaCareAi/internal/events"
	"dermaCareAi/internal/hair"
	"dermaCareAi/internal/llm"
	"dermaCareAi/internal/media"
	"dermaCareAi/internal/pipeline"
	"dermaCareAi/internal/recommend"
	"dermaCareAi/internal/scrape"
	"dermaCareAi/internal/server"
	"dermaCareAi/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx := context.Background()
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	defer store.Close()

	var uploader media.Uploader
	var mediaFS http.Handler
	if cfg.Media.Bucket != "" && cfg.Media.Region != "" {
		uploader, err = media.NewUploader(ctx, media.Config{
			Bucket:         cfg.Media.Bucket,
			Region:         cfg.Media.Region,
			Endpoint:       cfg.Media.Endpoint,
			PublicURL:      cfg.Media.PublicURL,
			KeyPrefix:      cfg.Media.KeyPrefix,
			ForcePathStyle: cfg.Media.ForcePathStyle,
		})
		if err != nil {
			log.Fatalf("failed to init media uploader: %v", err)
		}
	} else {
		local, err := media.NewLocalUploader(cfg.Media.LocalDir, cfg.Media.LocalPublicURL)
		if err != nil {
			log.Fatalf("failed to init local media storage: %v", err)
		}
		uploader = local
		mediaFS = http.FileServer(http.Dir(local.BaseDir))
		log.Println("media uploader: using local storage (S3 config missing)")
	}

	var productCatalog *catalog.Catalog
	if cfg.CatalogPath != "" {
		productCatalog, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Printf("product catalog unavailable: %v", err)
		} else {
			log.Printf("product catalog loaded: %d products", productCatalog.Len())
		}
	}

	var recommender recommend.Recommender
	if cfg.LLM.GeminiAPIKey != "" {
		recommender = recommend.NewLLM(llm.NewGeminiClient(cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel, 0, nil), productCatalog)
		log.Println("recommender ready: Gemini")
	} else if cfg.LLM.OpenAIAPIKey != "" {
		recommender = recommend.NewLLM(llm.NewOpenAIClient(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIModel), productCatalog)
		log.Println("recommender ready: OpenAI")
	} else {
		recommender = recommend.NewStatic()
		log.Println("recommender ready: static fallback")
	}

	var hairAnalyzer hair.Analyzer
	if cfg.LLM.GeminiAPIKey != "" {
		hairAnalyzer = hair.NewGeminiAnalyzer(cfg.LLM.GeminiAPIKey, cfg.LLM.HairModel)
	}

	var removers []bgremove.Remover
	if vertex := bgremove.NewVertex(bgremove.VertexConfig{
		ProjectID:          cfg.Bgremove.VertexProjectID,
		Location:           cfg.Bgremove.VertexLocation,
		Model:              cfg.Bgremove.VertexModel,
		APIKey:             cfg.Bgremove.VertexAPIKey,
		ServiceAccount:     cfg.Bgremove.VertexServiceAccount,
		ServiceAccountJSON: cfg.Bgremove.VertexServiceAccountJSON,
	}); vertex != nil {
		removers = append(removers, vertex)
	}
	if rembg := bgremove.NewRembg(cfg.Bgremove.RembgURL); rembg != nil {
		removers = append(removers, rembg)
	}
	remover := bgremove.NewChain(removers...)
	if !remover.Available() {
		log.Println("background removal: no backend configured, originals will be kept")
	}

	resolver := scrape.NewResolver(scrape.Config{
		UserAgent:            cfg.Scrape.UserAgent,
		CacheTTL:             cfg.Scrape.CacheTTL,
		LookFantasticBaseURL: cfg.Scrape.LookFantasticBaseURL,
		GoogleBaseURL:        cfg.Scrape.GoogleBaseURL,
	})

	eventBroker := events.NewBroker()
	imagePipeline := pipeline.New(resolver, remover, uploader, store, eventBroker)
	if cfg.Scrape.UserAgent != "" {
		imagePipeline.UserAgent = cfg.Scrape.UserAgent
	}

	handler := analyses.Handler{
		Store:       store,
		Broker:      eventBroker,
		Hair:        hairAnalyzer,
		Recommender: recommender,
		Pipeline:    imagePipeline,
		Remover:     remover,
		Resolver:    resolver,
		UserAgent:   cfg.Scrape.UserAgent,
	}

	srv := server.New(cfg.Port, handler, mediaFS)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		log.Println("shutting down server...")
		if err := srv.Close(); err != nil {
			log.Printf("server close error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}
