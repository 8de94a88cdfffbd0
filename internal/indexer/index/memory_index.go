// Package index implements the in-memory inverted index. The term space is
// striped across independently locked shards so documents with disjoint
// vocabularies can be indexed concurrently.
package index

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// DefaultStripes is used when NewMemoryIndex is given a non-positive count.
const DefaultStripes = 64

type stripe struct {
	mu       sync.RWMutex
	postings map[string]*Posting
}

type MemoryIndex struct {
	stripes []*stripe
	stats   *tracker
}

func NewMemoryIndex(stripes int) *MemoryIndex {
	if stripes <= 0 {
		stripes = DefaultStripes
	}
	m := &MemoryIndex{
		stripes: make([]*stripe, stripes),
		stats:   newTracker(stripes),
	}
	for i := range m.stripes {
		m.stripes[i] = &stripe{postings: make(map[string]*Posting)}
	}
	return m
}

func stripeIndex(key string, n int) int {
	return int(xxhash.Sum64String(key) % uint64(n))
}

// AddDocument merges the terms of one document into the index and counts
// the document once. Arguments are validated before anything is mutated.
//
// Lock order: the document's length stripe, then every touched term stripe
// in ascending order. The document counter is incremented while the term
// stripes are still held, so a reader never sees the count and the postings
// of a document disagree.
func (m *MemoryIndex) AddDocument(docName string, terms []string) error {
	if docName == "" {
		return apperrors.Invalidf("document name is required")
	}
	if len(terms) == 0 {
		return apperrors.Invalidf("document %q contains no terms", docName)
	}

	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	byStripe := make(map[int][]string)
	for term := range counts {
		i := stripeIndex(term, len(m.stripes))
		byStripe[i] = append(byStripe[i], term)
	}
	order := make([]int, 0, len(byStripe))
	for i := range byStripe {
		order = append(order, i)
	}
	sort.Ints(order)

	ls := m.stats.stripeFor(docName)
	ls.mu.Lock()
	defer ls.mu.Unlock()
	docLength := ls.lengths[docName] + len(terms)

	for _, i := range order {
		m.stripes[i].mu.Lock()
	}
	for _, i := range order {
		s := m.stripes[i]
		for _, term := range byStripe[i] {
			p, ok := s.postings[term]
			if !ok {
				p = newPosting()
				s.postings[term] = p
			}
			p.stat(docName).add(counts[term], docLength)
		}
	}
	ls.lengths[docName] = docLength
	m.stats.documents.Add(1)
	for _, i := range order {
		m.stripes[i].mu.Unlock()
	}
	return nil
}

// Lookup returns a snapshot of term's posting. The boolean is false when the
// term has never been indexed; the snapshot still carries the document count.
func (m *MemoryIndex) Lookup(term string) (TermSnapshot, bool) {
	s := m.stripes[stripeIndex(term, len(m.stripes))]
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := TermSnapshot{Term: term, TotalDocs: m.stats.count()}
	p, ok := s.postings[term]
	if !ok {
		return snap, false
	}
	snap.Docs = p.copyStats()
	return snap, true
}

// DocCount returns the number of successful AddDocument calls.
func (m *MemoryIndex) DocCount() int64 {
	return m.stats.count()
}

// DocumentLength returns the cumulative number of terms indexed under
// docName, or zero if it was never indexed.
func (m *MemoryIndex) DocumentLength(docName string) int {
	return m.stats.documentLength(docName)
}

// TermCount returns the number of distinct terms. Stripes are visited one at
// a time, so the figure is approximate under concurrent writes.
func (m *MemoryIndex) TermCount() int {
	total := 0
	for _, s := range m.stripes {
		s.mu.RLock()
		total += len(s.postings)
		s.mu.RUnlock()
	}
	return total
}

// Terms returns every indexed term in lexical order.
func (m *MemoryIndex) Terms() []string {
	terms := make([]string, 0)
	for _, s := range m.stripes {
		s.mu.RLock()
		for term := range s.postings {
			terms = append(terms, term)
		}
		s.mu.RUnlock()
	}
	sort.Strings(terms)
	return terms
}
