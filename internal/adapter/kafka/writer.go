// Package kafka publishes resolved rainfall results to the downstream
// classification topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/floodcast/rainfall-resolver/internal/config"
	"github.com/floodcast/rainfall-resolver/internal/domain"
)

// Writer produces resolved rainfall messages to a Kafka topic.
// It implements rainfall.ResultPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured results topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaResultsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes one resolved rainfall result and writes it to the topic.
// The key is the location fingerprint plus date, so per-location ordering is
// preserved across partitions.
func (w *Writer) Publish(ctx context.Context, result domain.ResolvedRainfall) error {
	msg, err := serializeToMessage(result)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ResolvedRainfall into a Kafka message.
func serializeToMessage(result domain.ResolvedRainfall) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize resolved rainfall: %w", err)
	}

	key := result.Location.Fingerprint() + "|" + result.Date.Format(domain.DateLayout)
	unresolved := "false"
	if result.Unresolved() {
		unresolved = "true"
	}

	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "unresolved", Value: []byte(unresolved)},
			{Key: "resolved_at", Value: []byte(result.ResolvedAt.Format(time.RFC3339))},
		},
	}, nil
}
