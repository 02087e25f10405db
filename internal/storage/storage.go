package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that an analysis could not be located in the backing store.
var ErrNotFound = errors.New("analysis not found")

// Analysis kinds.
const (
	KindSkin = "skin"
	KindHair = "hair"
)

// Analysis represents one customer photo analysis together with its
// recommendations and their processing state.
type Analysis struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Concerns  []string  `json:"concerns,omitempty"`
	Profile   Profile   `json:"profile"`
	Products  []Product `json:"products,omitempty"`
	Status    Status    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile captures the measured skin or hair attributes. Skin and hair
// fields are mutually exclusive depending on the analysis kind.
type Profile struct {
	SkinTone    int     `json:"skin_tone,omitempty"`
	SkinType    string  `json:"skin_type,omitempty"`
	HasAcne     bool    `json:"has_acne,omitempty"`
	AcnePercent float64 `json:"acne_percent,omitempty"`

	HairType        string             `json:"hair_type,omitempty"`
	HairConfidences map[string]float64 `json:"hair_confidences,omitempty"`
	Dandruff        string             `json:"dandruff,omitempty"`
	Moisture        string             `json:"moisture,omitempty"`
	Density         string             `json:"density,omitempty"`
}

// Product is a recommended product attached to an analysis.
type Product struct {
	Name      string `json:"name"`
	Brand     string `json:"brand,omitempty"`
	Price     string `json:"price,omitempty"`
	Category  string `json:"category,omitempty"`
	URL       string `json:"url,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	ImageKey  string `json:"image_key,omitempty"`
	Processed bool   `json:"processed,omitempty"`
}

// Status represents pipeline progress for an analysis.
type Status struct {
	Analysis        string `json:"analysis"`
	Recommendations string `json:"recommendations"`
	Images          string `json:"images"`
}

// Store defines the persistence behaviors the application relies on.
type Store interface {
	CreateAnalysis(ctx context.Context, input Analysis) (Analysis, error)
	ListAnalyses(ctx context.Context) ([]Analysis, error)
	GetAnalysis(ctx context.Context, id string) (Analysis, error)
	UpdateProducts(ctx context.Context, id string, products []Product, status Status) (Analysis, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	DeleteAnalysis(ctx context.Context, id string) error
	Close()
}

// NewStore selects a backing store based on whether a database URL is provided.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return NewInMemoryStore(), nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS analyses (
        id TEXT PRIMARY KEY,
        kind TEXT NOT NULL,
        concerns TEXT[],
        profile JSONB DEFAULT '{}'::jsonb,
        products JSONB DEFAULT '[]'::jsonb,
        pipeline_status JSONB DEFAULT '{}'::jsonb,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`)
	if err != nil {
		return fmt.Errorf("create analyses table: %w", err)
	}

	var schemaAlters = []string{
		`ALTER TABLE analyses ADD COLUMN IF NOT EXISTS concerns TEXT[]`,
		`ALTER TABLE analyses ADD COLUMN IF NOT EXISTS profile JSONB DEFAULT '{}'::jsonb`,
		`ALTER TABLE analyses ADD COLUMN IF NOT EXISTS products JSONB DEFAULT '[]'::jsonb`,
		`ALTER TABLE analyses ADD COLUMN IF NOT EXISTS pipeline_status JSONB DEFAULT '{}'::jsonb`,
	}
	for _, stmt := range schemaAlters {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("alter analyses table: %w", err)
		}
	}

	return nil
}
