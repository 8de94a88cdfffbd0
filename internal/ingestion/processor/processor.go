// Package processor runs an uploaded document through the ingestion
// pipeline: validation, storage, indexing, registration and the
// index-complete event.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/registry"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

// Indexer is the write side of the index gateway.
type Indexer interface {
	Index(documentName string, rawText string) (int, error)
	Stats() indexer.Stats
}

type Store interface {
	Save(name string, content []byte) error
	Remove(name string) error
}

type Recorder interface {
	Record(ctx context.Context, doc registry.Document) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Options carries the optional collaborators. Nil fields are skipped.
type Options struct {
	Registry Recorder
	Events   Publisher
	Metrics  *metrics.Metrics
	// PublishTimeout bounds one index-complete publish including retries.
	PublishTimeout time.Duration
	Retry          resilience.RetryConfig
}

type Processor struct {
	store       Store
	index       Indexer
	maxFileSize int64
	opts        Options
	pending     sync.WaitGroup
	logger      *slog.Logger
}

func New(store Store, index Indexer, maxFileSize int64, opts Options) *Processor {
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 10 * time.Second
	}
	return &Processor{
		store:       store,
		index:       index,
		maxFileSize: maxFileSize,
		opts:        opts,
		logger:      slog.Default().With("component", "ingestion-processor"),
	}
}

// Process stores content under name and indexes it. A document that fails
// to index is removed from storage so the name can be uploaded again.
func (p *Processor) Process(ctx context.Context, name string, content []byte) (*ingestion.DocumentResponse, error) {
	log := logger.FromContext(ctx)
	size := int64(len(content))

	if err := validator.ValidateUpload(name, content, p.maxFileSize); err != nil {
		p.fail("validate")
		return nil, err
	}
	if err := p.store.Save(name, content); err != nil {
		p.fail("store")
		return nil, err
	}

	termCount, err := p.index.Index(name, string(content))
	if err != nil {
		p.fail("index")
		if rmErr := p.store.Remove(name); rmErr != nil {
			log.Error("failed to remove unindexed file", "name", name, "error", rmErr)
		}
		return nil, fmt.Errorf("indexing %s: %w", name, err)
	}

	indexedAt := time.Now().UTC()
	if p.opts.Registry != nil {
		if _, err := p.opts.Registry.Record(ctx, registry.Document{
			Name:      name,
			SizeBytes: size,
			TermCount: termCount,
			IndexedAt: indexedAt,
		}); err != nil {
			log.Error("failed to register document", "name", name, "error", err)
		}
	}
	if p.opts.Events != nil {
		p.publish(ctx, ingestion.IndexEvent{
			DocumentName: name,
			SizeBytes:    size,
			TermCount:    termCount,
			IndexedAt:    indexedAt,
		})
	}
	if m := p.opts.Metrics; m != nil {
		m.DocsIndexedTotal.Inc()
		stats := p.index.Stats()
		m.IndexedDocuments.Set(float64(stats.Documents))
		m.IndexedTerms.Set(float64(stats.Terms))
	}

	log.Info("document indexed", "name", name, "size", size, "term_count", termCount)
	return &ingestion.DocumentResponse{Name: name, Size: size}, nil
}

// publish sends the index-complete event in the background so a slow broker
// never delays the upload response.
func (p *Processor) publish(ctx context.Context, event ingestion.IndexEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.PublishTimeout)
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		defer cancel()
		err := resilience.Retry(ctx, "publish-index-event", p.opts.Retry, func(ctx context.Context) error {
			return p.opts.Events.Publish(ctx, kafka.Event{Key: event.DocumentName, Value: event})
		})
		if err != nil {
			p.logger.Error("failed to publish index event", "name", event.DocumentName, "error", err)
		}
	}()
}

func (p *Processor) fail(stage string) {
	if p.opts.Metrics != nil {
		p.opts.Metrics.IndexFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// Close waits for in-flight event publishes.
func (p *Processor) Close() {
	p.pending.Wait()
}
