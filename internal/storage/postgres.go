package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists analyses in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// CreateAnalysis stores the provided analysis in PostgreSQL.
func (s *PostgresStore) CreateAnalysis(ctx context.Context, input Analysis) (Analysis, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.CreatedAt.IsZero() {
		input.CreatedAt = time.Now()
	}
	if input.Products == nil {
		input.Products = []Product{}
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO analyses (id, kind, concerns, profile, products, pipeline_status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		input.ID, input.Kind, input.Concerns, input.Profile, input.Products, input.Status, input.CreatedAt); err != nil {
		return Analysis{}, fmt.Errorf("insert analysis: %w", err)
	}

	return input, nil
}

// ListAnalyses returns the most recent analyses.
func (s *PostgresStore) ListAnalyses(ctx context.Context) ([]Analysis, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, concerns, profile, products, pipeline_status, created_at
         FROM analyses ORDER BY created_at DESC LIMIT 50`)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	analyses := []Analysis{}
	for rows.Next() {
		item, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, item)
	}

	return analyses, rows.Err()
}

// GetAnalysis returns an analysis by ID.
func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (Analysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, concerns, profile, products, pipeline_status, created_at
         FROM analyses WHERE id = $1`, id)

	item, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return item, err
}

// UpdateProducts replaces the products and pipeline status on an analysis.
func (s *PostgresStore) UpdateProducts(ctx context.Context, id string, products []Product, status Status) (Analysis, error) {
	if products == nil {
		products = []Product{}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET products = $2, pipeline_status = $3 WHERE id = $1`,
		id, products, status)
	if err != nil {
		return Analysis{}, fmt.Errorf("update products: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Analysis{}, ErrNotFound
	}

	return s.GetAnalysis(ctx, id)
}

// UpdateStatus sets only the pipeline status for an analysis.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE analyses SET pipeline_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAnalysis removes an analysis by ID.
func (s *PostgresStore) DeleteAnalysis(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases database resources.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func scanAnalysis(row pgx.Row) (Analysis, error) {
	var item Analysis
	if err := row.Scan(&item.ID, &item.Kind, &item.Concerns, &item.Profile, &item.Products, &item.Status, &item.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Analysis{}, err
		}
		return Analysis{}, fmt.Errorf("scan analysis: %w", err)
	}
	return item, nil
}
