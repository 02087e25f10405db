package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"dermaCareAi/internal/bgremove"
	"dermaCareAi/internal/catalog"
	"dermaCareAi/internal/config"
	"dermaCareAi/internal/hair"
	"dermaCareAi/internal/llm"
	"dermaCareAi/internal/media"
	"dermaCareAi/internal/pipeline"
	"dermaCareAi/internal/recommend"
	"dermaCareAi/internal/scrape"
	"dermaCareAi/internal/skin"
	"dermaCareAi/internal/storage"
)

// report is what gets written to recommendations.json.
type report struct {
	Kind     string            `json:"kind"`
	Profile  storage.Profile   `json:"profile"`
	Concerns []string          `json:"concerns,omitempty"`
	Products []storage.Product `json:"products"`
}

func main() {
	_ = godotenv.Load()

	var (
		photoPath   = flag.String("photo", "", "path to the face or hair photo")
		kind        = flag.String("kind", storage.KindSkin, "analysis kind: skin or hair")
		concernsRaw = flag.String("concerns", "", "comma separated skin concerns")
		dandruff    = flag.String("dandruff", "", "reported dandruff level")
		moisture    = flag.String("moisture", "", "reported moisture level")
		density     = flag.String("density", "", "reported hair density")
		outDir      = flag.String("out", "recommendations", "output directory for product images and the report")
		skipImages  = flag.Bool("skip-images", false, "skip product image lookup and processing")
	)
	flag.Parse()

	if *photoPath == "" {
		flag.Usage()
		log.Fatal("--photo is required")
	}

	photo, err := os.ReadFile(*photoPath)
	if err != nil {
		log.Fatalf("read photo: %v", err)
	}

	cfg := config.FromEnv()
	ctx := context.Background()

	var concerns []string
	for _, c := range strings.Split(*concernsRaw, ",") {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			concerns = append(concerns, trimmed)
		}
	}

	analysis := storage.Analysis{Kind: strings.ToLower(*kind), Concerns: concerns}
	switch analysis.Kind {
	case storage.KindSkin:
		profile, err := skin.Analyze(photo, concerns)
		if err != nil {
			log.Fatalf("analyze photo: %v", err)
		}
		analysis.Profile = storage.Profile{
			SkinTone:    int(profile.Tone),
			SkinType:    profile.Type,
			HasAcne:     profile.HasAcne,
			AcnePercent: profile.AcnePercent,
		}
		fmt.Printf("Skin tone: %d/6, type: %s", profile.Tone, profile.Type)
		if profile.HasAcne {
			fmt.Printf(", acne severity %.2f", profile.AcneSeverity())
		}
		fmt.Println()
	case storage.KindHair:
		if cfg.LLM.GeminiAPIKey == "" {
			log.Fatal("hair analysis needs GEMINI_API_KEY")
		}
		analyzer := hair.NewGeminiAnalyzer(cfg.LLM.GeminiAPIKey, cfg.LLM.HairModel)
		hairType, confidences, err := analyzer.Classify(ctx, photo, "")
		if err != nil {
			log.Fatalf("classify hair: %v", err)
		}
		analysis.Profile = storage.Profile{
			HairType:        hairType,
			HairConfidences: confidences,
			Dandruff:        *dandruff,
			Moisture:        *moisture,
			Density:         *density,
		}
		fmt.Printf("Hair type: %s\n", hairType)
	default:
		log.Fatalf("unknown kind %q", *kind)
	}

	products, err := recommendProducts(ctx, cfg, analysis)
	if err != nil {
		log.Fatalf("recommend products: %v", err)
	}
	analysis.Products = products
	fmt.Printf("Recommended %d products\n", len(products))

	if !*skipImages {
		analysis = processImages(ctx, cfg, analysis, *outDir)
	}

	if err := writeReport(*outDir, analysis); err != nil {
		log.Fatalf("write report: %v", err)
	}
	fmt.Printf("Report written to %s\n", filepath.Join(*outDir, "recommendations.json"))
}

func recommendProducts(ctx context.Context, cfg config.Config, analysis storage.Analysis) ([]storage.Product, error) {
	var productCatalog *catalog.Catalog
	if cfg.CatalogPath != "" {
		loaded, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Printf("product catalog unavailable: %v", err)
		} else {
			productCatalog = loaded
		}
	}

	var recommender recommend.Recommender
	if cfg.LLM.GeminiAPIKey != "" {
		recommender = recommend.NewLLM(llm.NewGeminiClient(cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel, 0, nil), productCatalog)
	} else {
		recommender = recommend.NewStatic()
	}

	if analysis.Kind == storage.KindHair {
		recommended, err := recommender.Haircare(ctx, hair.Profile{
			Type:     analysis.Profile.HairType,
			Dandruff: analysis.Profile.Dandruff,
			Moisture: analysis.Profile.Moisture,
			Density:  analysis.Profile.Density,
		})
		if err != nil {
			return nil, err
		}
		products := make([]storage.Product, 0, len(recommended))
		for _, p := range recommended {
			products = append(products, storage.Product{
				Name: p.Name, Brand: p.Brand, Price: p.PriceEstimate, Category: p.Type, Reason: p.Reason,
			})
		}
		return products, nil
	}

	recommended, err := recommender.Skincare(ctx, skin.Profile{
		Tone:        skin.Tone(analysis.Profile.SkinTone),
		Type:        analysis.Profile.SkinType,
		HasAcne:     analysis.Profile.HasAcne,
		AcnePercent: analysis.Profile.AcnePercent,
		Concerns:    analysis.Concerns,
	})
	if err != nil {
		return nil, err
	}
	products := make([]storage.Product, 0, len(recommended))
	for _, p := range recommended {
		products = append(products, storage.Product{
			Name: p.Name, Brand: p.Brand, Price: p.Price, Category: p.Category, URL: p.URL, Reason: p.Reason,
		})
	}
	return products, nil
}

// processImages runs the image pipeline against a throwaway in-memory
// store, writing the processed images into outDir.
func processImages(ctx context.Context, cfg config.Config, analysis storage.Analysis, outDir string) storage.Analysis {
	uploader, err := media.NewLocalUploader(outDir, "")
	if err != nil {
		log.Fatalf("prepare output dir: %v", err)
	}
	if err := uploader.Clear(); err != nil {
		log.Printf("clear output dir: %v", err)
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

	resolver := scrape.NewResolver(scrape.Config{
		UserAgent:            cfg.Scrape.UserAgent,
		CacheTTL:             cfg.Scrape.CacheTTL,
		LookFantasticBaseURL: cfg.Scrape.LookFantasticBaseURL,
		GoogleBaseURL:        cfg.Scrape.GoogleBaseURL,
	})

	store := storage.NewInMemoryStore()
	created, err := store.CreateAnalysis(ctx, analysis)
	if err != nil {
		log.Fatalf("stage analysis: %v", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	p := pipeline.New(resolver, bgremove.NewChain(removers...), uploader, store, nil)
	if cfg.Scrape.UserAgent != "" {
		p.UserAgent = cfg.Scrape.UserAgent
	}
	if err := p.Run(runCtx, created.ID); err != nil {
		log.Printf("image pipeline: %v", err)
	}

	final, err := store.GetAnalysis(ctx, created.ID)
	if err != nil {
		log.Fatalf("load processed analysis: %v", err)
	}
	return final
}

func writeReport(outDir string, analysis storage.Analysis) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(report{
		Kind:     analysis.Kind,
		Profile:  analysis.Profile,
		Concerns: analysis.Concerns,
		Products: analysis.Products,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "recommendations.json"), payload, 0o644)
}
