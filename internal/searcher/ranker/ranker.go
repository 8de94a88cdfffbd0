// Package ranker computes TF-IDF relevance scores and orders documents by
// them. Rank is the single ordering policy used by every ranked query path.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Score returns the TF-IDF score of snap's term for every document that
// contains it. An empty corpus or an unseen term yields an empty map.
func Score(snap index.TermSnapshot) map[string]float64 {
	scores := make(map[string]float64, len(snap.Docs))
	idf, ok := computeIDF(snap.TotalDocs, int64(snap.DocFreq()))
	if !ok {
		return scores
	}
	for docID, stat := range snap.Docs {
		scores[docID] = stat.TermFrequency * idf
	}
	return scores
}

// Rank sorts scores by descending score, breaking ties by ascending
// document ID. A non-positive limit returns every document.
func Rank(scores map[string]float64, limit int) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// computeIDF returns ln(N/k). It reports false when either count is zero,
// which covers querying before anything was indexed.
func computeIDF(totalDocs, docFreq int64) (float64, bool) {
	if totalDocs <= 0 || docFreq <= 0 {
		return 0, false
	}
	return math.Log(float64(totalDocs) / float64(docFreq)), true
}
