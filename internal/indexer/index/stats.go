package index

import (
	"sync"
	"sync/atomic"
)

// DocumentStat records how often a term occurs in one document.
// TermFrequency is Occurrences divided by the document's term count as of
// the last update. After a name is indexed again, only the terms in the later
// text are recomputed; the others keep their old denominator, so the
// frequencies of one document need not share a length.
type DocumentStat struct {
	Occurrences   int     `json:"occurrences"`
	TermFrequency float64 `json:"term_frequency"`
}

func (s *DocumentStat) add(n, docLength int) {
	s.Occurrences += n
	s.TermFrequency = float64(s.Occurrences) / float64(docLength)
}

// lengthStripe guards the cumulative term counts for the documents hashed
// onto it. Writers hold it for the whole AddDocument call, which serialises
// concurrent indexing of the same document name.
type lengthStripe struct {
	mu      sync.Mutex
	lengths map[string]int
}

// tracker owns the document-level statistics: per-document term counts and
// the global document counter.
type tracker struct {
	stripes   []*lengthStripe
	documents atomic.Int64
}

func newTracker(n int) *tracker {
	t := &tracker{stripes: make([]*lengthStripe, n)}
	for i := range t.stripes {
		t.stripes[i] = &lengthStripe{lengths: make(map[string]int)}
	}
	return t
}

func (t *tracker) stripeFor(docName string) *lengthStripe {
	return t.stripes[stripeIndex(docName, len(t.stripes))]
}

func (t *tracker) documentLength(docName string) int {
	s := t.stripeFor(docName)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lengths[docName]
}

func (t *tracker) count() int64 {
	return t.documents.Load()
}
