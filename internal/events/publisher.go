package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/catalog-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	EventTypeProductScraped EventType = "PRODUCT_SCRAPED"

	DefaultStream = "stream:products"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// ProductScrapedPayload is the data field of a stream entry.
type ProductScrapedPayload struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Product   models.Product `json:"product"`
	Source    string         `json:"source"`
}

// Publisher appends one stream entry per scraped product.
type Publisher struct {
	redis  RedisClient
	stream string
	runID  string
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(client RedisClient, stream, runID string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}

	return &Publisher{
		redis:  client,
		stream: stream,
		runID:  runID,
		logger: logger.With("component", "event_publisher"),
		now:    time.Now,
	}
}

func (p *Publisher) Name() string {
	return "redis"
}

// Write publishes every product and stops at the first failure.
func (p *Publisher) Write(ctx context.Context, products []models.Product) error {
	for i, product := range products {
		if err := p.PublishProductScraped(ctx, product); err != nil {
			return fmt.Errorf("published %d of %d: %w", i, len(products), err)
		}
	}

	p.logger.Info("events published", "stream", p.stream, "count", len(products))
	return nil
}

func (p *Publisher) PublishProductScraped(ctx context.Context, product models.Product) error {
	payload := ProductScrapedPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypeProductScraped),
		RunID:     p.runID,
		Timestamp: p.now(),
		Product:   product,
		Source:    "catalog-scraper",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":       string(data),
			"type":       payload.EventType,
			"event_id":   payload.EventID,
			"run_id":     p.runID,
			"product_id": product.DedupeKey(),
			"timestamp":  fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		},
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("event published",
		"event_id", payload.EventID,
		"product_id", product.DedupeKey(),
	)

	return nil
}

func (p *Publisher) Close() error {
	return p.redis.Close()
}
