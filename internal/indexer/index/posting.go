package index

// Posting holds the per-document statistics for one term.
type Posting struct {
	docs map[string]*DocumentStat
}

func newPosting() *Posting {
	return &Posting{docs: make(map[string]*DocumentStat)}
}

// stat returns the entry for docName, creating it when absent.
func (p *Posting) stat(docName string) *DocumentStat {
	s, ok := p.docs[docName]
	if !ok {
		s = &DocumentStat{}
		p.docs[docName] = s
	}
	return s
}

func (p *Posting) copyStats() map[string]DocumentStat {
	out := make(map[string]DocumentStat, len(p.docs))
	for name, s := range p.docs {
		out[name] = *s
	}
	return out
}

// TermSnapshot is a consistent copy of a term's posting together with the
// number of documents indexed at the moment it was taken.
type TermSnapshot struct {
	Term      string
	Docs      map[string]DocumentStat
	TotalDocs int64
}

// DocFreq is the number of documents containing the term.
func (s TermSnapshot) DocFreq() int {
	return len(s.Docs)
}
