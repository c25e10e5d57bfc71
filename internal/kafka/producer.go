package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/trogers1052/virfolio/internal/marketdata"
	"github.com/trogers1052/virfolio/internal/models"
)

// messageWriter is the subset of *kafka.Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes price events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
	log    zerolog.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string, log zerolog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
		log:    log.With().Str("component", "kafka-producer").Str("topic", topic).Logger(),
	}
}

// PublishPriceUpdated publishes one PRICE_UPDATED event per position, keyed
// by the provider symbol so updates of one stock stay ordered
func (p *Producer) PublishPriceUpdated(ctx context.Context, positions []*models.Position) error {
	if len(positions) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(positions))
	for _, pos := range positions {
		if !pos.HasLivePrice() {
			continue
		}
		symbol := marketdata.QualifiedSymbol(pos.Ticker, pos.Exchange)
		timestamp := p.now()
		if pos.LastUpdated != nil {
			timestamp = *pos.LastUpdated
		}

		event := models.PriceEvent{
			EventID:     uuid.NewString(),
			EventType:   models.EventPriceUpdated,
			Symbol:      symbol,
			Ticker:      pos.Ticker,
			Exchange:    pos.Exchange,
			PositionID:  pos.ID,
			PortfolioID: pos.PortfolioID,
			Price:       pos.CurrentPrice.Decimal.String(),
			Currency:    pos.Currency(),
			Timestamp:   timestamp,
		}
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(symbol), Value: data})
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.log.Debug().Int("events", len(msgs)).Msg("Published price updates")
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
