package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/catalog-scraper/internal/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS scraped_products (
		dedupe_key  TEXT PRIMARY KEY,
		url         TEXT,
		title       TEXT,
		description TEXT,
		price       DOUBLE PRECISION,
		image_url   TEXT,
		category    TEXT,
		run_id      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

const upsertProduct = `
	INSERT INTO scraped_products (dedupe_key, url, title, description, price, image_url, category, run_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (dedupe_key) DO UPDATE SET
		url = EXCLUDED.url,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		price = EXCLUDED.price,
		image_url = EXCLUDED.image_url,
		category = EXCLUDED.category,
		run_id = EXCLUDED.run_id,
		updated_at = CURRENT_TIMESTAMP`

// ProductStore upserts scraped products keyed by url, else title.
type ProductStore struct {
	db     *DB
	runID  string
	logger *slog.Logger
}

func NewProductStore(db *DB, runID string, logger *slog.Logger) *ProductStore {
	return &ProductStore{
		db:     db,
		runID:  runID,
		logger: logger.With("component", "postgres"),
	}
}

func (s *ProductStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *ProductStore) Name() string {
	return "postgres"
}

// Write stores all products in one transaction.
func (s *ProductStore) Write(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range products {
			key := p.DedupeKey()
			if key == "" {
				continue
			}
			batch.Queue(upsertProduct,
				key, p.URL, p.Title, p.Description, p.Price, p.ImageURL, p.Category, s.runID,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to upsert product: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close batch: %w", err)
		}

		s.logger.Debug("products upserted", "count", batch.Len())
		return nil
	})
}

// Count returns the number of stored products.
func (s *ProductStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM scraped_products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}
