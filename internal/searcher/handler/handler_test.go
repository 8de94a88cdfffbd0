package handler

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
)

func newTestServer(t *testing.T) (*indexer.Engine, http.Handler) {
	t.Helper()
	engine := indexer.NewEngine(config.IndexConfig{Stripes: 8})
	if _, err := engine.Index("d1", "apple banana apple"); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Index("d2", "banana cherry"); err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	New(engine, nil, nil, 10, 100).Register(mux)
	return engine, mux
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestKeywords(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/keywords?keyword=Banana")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var docs []string
	if err := json.NewDecoder(rec.Body).Decode(&docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0] != "d1" || docs[1] != "d2" {
		t.Errorf("docs = %v, want [d1 d2]", docs)
	}
}

func TestKeywordsUnknownTermIsEmptyList(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/keywords?keyword=durian")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestInfos(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(t, h, "/infos?keyword=apple")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var scores map[string]float64
	if err := json.NewDecoder(rec.Body).Decode(&scores); err != nil {
		t.Fatal(err)
	}
	want := (2.0 / 3.0) * math.Log(2)
	if len(scores) != 1 || math.Abs(scores["d1"]-want) > 1e-9 {
		t.Errorf("scores = %v, want d1=%f", scores, want)
	}
}

func TestRankedHonoursLimit(t *testing.T) {
	engine, h := newTestServer(t)
	engine.Index("d3", "cherry cherry")
	rec := get(t, h, "/ranked?keyword=cherry&limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var results []ranker.ScoredDoc
	if err := json.NewDecoder(rec.Body).Decode(&results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].DocID != "d3" {
		t.Errorf("results = %v, want [d3]", results)
	}
}

func TestBadRequests(t *testing.T) {
	_, h := newTestServer(t)
	tests := []struct {
		name   string
		target string
	}{
		{"missing keyword", "/keywords"},
		{"blank keyword", "/infos?keyword=%20%20"},
		{"zero limit", "/ranked?keyword=apple&limit=0"},
		{"non numeric limit", "/ranked?keyword=apple&limit=ten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var body map[string]string
			json.NewDecoder(rec.Body).Decode(&body)
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestStats(t *testing.T) {
	_, h := newTestServer(t)
	var stats indexer.Stats
	if err := json.NewDecoder(get(t, h, "/stats").Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 2 || stats.Terms != 3 {
		t.Errorf("stats = %+v, want 2 documents, 3 terms", stats)
	}
}

func TestCacheDisabled(t *testing.T) {
	_, h := newTestServer(t)
	if rec := get(t, h, "/cache/stats"); rec.Code != http.StatusOK {
		t.Errorf("cache stats status = %d", rec.Code)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cache/invalidate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalidate status = %d, want 503", rec.Code)
	}
}

type countingStore struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	v, ok := s.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *countingStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = make(map[string][]byte)
	return n, nil
}

func TestBlankKeywordSkipsCache(t *testing.T) {
	engine := indexer.NewEngine(config.IndexConfig{Stripes: 8})
	if _, err := engine.Index("d1", "apple"); err != nil {
		t.Fatal(err)
	}
	store := &countingStore{data: make(map[string][]byte)}
	qc := cache.New(store, time.Minute, nil)
	mux := http.NewServeMux()
	New(engine, qc, nil, 10, 100).Register(mux)

	for _, target := range []string{"/keywords", "/infos?keyword=%20", "/ranked?keyword=%09"} {
		if rec := get(t, mux, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", target, rec.Code)
		}
	}
	if hits, misses := qc.Stats(); hits != 0 || misses != 0 {
		t.Errorf("cache stats = %d hits, %d misses, want 0/0", hits, misses)
	}
	store.mu.Lock()
	gets, keys := store.gets, len(store.data)
	store.mu.Unlock()
	if gets != 0 || keys != 0 {
		t.Errorf("store touched: %d gets, %d keys", gets, keys)
	}

	if rec := get(t, mux, "/keywords?keyword=apple"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, misses := qc.Stats(); misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}
}
