package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/trogers1052/virfolio/internal/models"
)

// Refresher refreshes and persists the prices of one portfolio
type Refresher interface {
	RefreshPortfolio(ctx context.Context, userID, portfolioID int) (int, error)
}

// messageReader is the subset of *kafka.Reader the consumer uses
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// RefreshConsumer consumes REFRESH_REQUESTED events and refreshes the
// requested portfolio
type RefreshConsumer struct {
	reader    messageReader
	refresher Refresher
	log       zerolog.Logger
}

// NewRefreshConsumer creates a new Kafka consumer for refresh requests
func NewRefreshConsumer(brokers []string, topic, groupID string, refresher Refresher, log zerolog.Logger) *RefreshConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &RefreshConsumer{
		reader:    reader,
		refresher: refresher,
		log:       log.With().Str("component", "kafka-consumer").Str("topic", topic).Logger(),
	}
}

// Start consumes messages until ctx is cancelled
func (c *RefreshConsumer) Start(ctx context.Context) error {
	c.log.Info().Str("topic", c.reader.Config().Topic).Msg("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("Kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.log.Error().Err(err).Msg("Error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.log.Error().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("Error processing message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *RefreshConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var req models.RefreshRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("failed to unmarshal refresh request: %w", err)
	}

	if req.EventType != models.EventRefreshRequested {
		c.log.Debug().Str("event_type", req.EventType).Msg("Ignoring event type")
		return nil
	}
	if req.PortfolioID <= 0 || req.UserID <= 0 {
		return fmt.Errorf("refresh request without user or portfolio: %s", string(msg.Value))
	}

	n, err := c.refresher.RefreshPortfolio(ctx, req.UserID, req.PortfolioID)
	if err != nil {
		return fmt.Errorf("failed to refresh portfolio %d: %w", req.PortfolioID, err)
	}

	c.log.Debug().Int("portfolio_id", req.PortfolioID).Int("refreshed", n).Msg("Processed refresh request")
	return nil
}

// Close closes the Kafka consumer
func (c *RefreshConsumer) Close() error {
	return c.reader.Close()
}
