// Package indexer exposes the index gateway: the only entry point other
// components use to add documents to the in-memory index and query it.
package indexer

import (
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

type Engine struct {
	memIndex *index.MemoryIndex
	logger   *slog.Logger
}

// Stats summarises the index contents.
type Stats struct {
	Documents int64 `json:"documents"`
	Terms     int   `json:"terms"`
}

func NewEngine(cfg config.IndexConfig) *Engine {
	return &Engine{
		memIndex: index.NewMemoryIndex(cfg.Stripes),
		logger:   slog.Default().With("component", "indexer"),
	}
}

// Index tokenizes rawText and adds it under documentName. It returns the
// number of terms indexed.
func (e *Engine) Index(documentName string, rawText string) (int, error) {
	if documentName == "" {
		return 0, apperrors.Invalidf("document name is required")
	}
	if rawText == "" {
		return 0, apperrors.Invalidf("text of %s is empty", documentName)
	}
	terms := tokenizer.Tokenize(rawText)
	if err := e.memIndex.AddDocument(documentName, terms); err != nil {
		return 0, err
	}
	e.logger.Debug("document indexed in memory",
		"doc_id", documentName,
		"token_count", len(terms),
		"doc_count", e.memIndex.DocCount(),
	)
	return len(terms), nil
}

// DocumentsContaining returns the names of the documents containing term.
// Membership carries no ranking; the names are sorted only for stable output.
func (e *Engine) DocumentsContaining(term string) ([]string, error) {
	snap, ok, err := e.lookup(term)
	if err != nil {
		return nil, err
	}
	docs := make([]string, 0, snap.DocFreq())
	if !ok {
		return docs, nil
	}
	for name := range snap.Docs {
		docs = append(docs, name)
	}
	sort.Strings(docs)
	return docs, nil
}

// ScoreByRelevance returns the TF-IDF score of term for each document that
// contains it.
func (e *Engine) ScoreByRelevance(term string) (map[string]float64, error) {
	snap, ok, err := e.lookup(term)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]float64{}, nil
	}
	return ranker.Score(snap), nil
}

// Rank returns the documents containing term ordered by relevance.
func (e *Engine) Rank(term string, limit int) ([]ranker.ScoredDoc, error) {
	scores, err := e.ScoreByRelevance(term)
	if err != nil {
		return nil, err
	}
	return ranker.Rank(scores, limit), nil
}

func (e *Engine) Stats() Stats {
	return Stats{
		Documents: e.memIndex.DocCount(),
		Terms:     e.memIndex.TermCount(),
	}
}

// Generation changes whenever a document is indexed. Query results computed
// at the same generation are interchangeable.
func (e *Engine) Generation() int64 {
	return e.memIndex.DocCount()
}

func (e *Engine) lookup(term string) (index.TermSnapshot, bool, error) {
	normalized := tokenizer.Normalize(term)
	if normalized == "" {
		return index.TermSnapshot{}, false, apperrors.Invalidf("keyword is empty")
	}
	snap, ok := e.memIndex.Lookup(normalized)
	return snap, ok, nil
}
