// Package consumer reads ingest events from Kafka and runs each document
// through the same ingestion processor as HTTP uploads.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
)

type Processor interface {
	Process(ctx context.Context, name string, content []byte) (*ingestion.DocumentResponse, error)
}

// IndexConsumer drives the ingestion pipeline from a Kafka topic.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

func (ic *IndexConsumer) Close() error {
	return ic.consumer.Close()
}

// HandleMessage returns a handler that processes one IngestEvent per
// message. Messages that can never succeed (undecodable, invalid or
// duplicate documents) are dropped so they are committed. Any other failure
// is returned; the consumer retries the same message and stops, leaving it
// uncommitted, once its retry budget is spent.
func HandleMessage(proc Processor) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		resp, err := proc.Process(ctx, event.DocumentName, []byte(event.Content))
		switch {
		case err == nil:
			logger.Info("ingest event indexed", "name", resp.Name, "size", resp.Size)
			return nil
		case permanent(err):
			logger.Warn("ingest event rejected",
				"name", event.DocumentName,
				"error", err,
			)
			return nil
		default:
			return fmt.Errorf("processing %s: %w", event.DocumentName, err)
		}
	}
}

func permanent(err error) bool {
	return errors.Is(err, apperrors.ErrDocumentExists) ||
		errors.Is(err, apperrors.ErrBadFile) ||
		errors.Is(err, apperrors.ErrInvalidInput)
}
