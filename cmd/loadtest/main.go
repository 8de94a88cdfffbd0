package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var vocabulary = strings.Fields(`
	inverted index posting term frequency document corpus ranking relevance
	tokenizer query keyword search engine score logarithm stripe lock
	concurrent reader writer cache redis kafka postgres upload storage
	apple banana cherry river mountain forest ocean desert valley island`)

type Config struct {
	BaseURL     string
	Documents   int
	DocWords    int
	Concurrency int
	Duration    time.Duration
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of searchd")
	documents := flag.Int("documents", 200, "number of synthetic documents to upload before querying")
	docWords := flag.Int("words", 300, "words per synthetic document")
	concurrency := flag.Int("concurrency", 10, "number of concurrent query workers")
	duration := flag.Duration("duration", 30*time.Second, "query phase duration")
	flag.Parse()

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Documents:   *documents,
		DocWords:    *docWords,
		Concurrency: *concurrency,
		Duration:    *duration,
	}

	fmt.Println("=== searchd Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Documents:   %d x %d words\n", cfg.Documents, cfg.DocWords)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Println()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	seedStart := time.Now()
	seed := seedDocuments(client, cfg)
	seed.Report(os.Stdout, "Uploads", time.Since(seedStart))

	queries := runQueries(client, cfg)
	var total int64
	for _, endpoint := range []string{"keywords", "infos", "ranked"} {
		queries[endpoint].Report(os.Stdout, "GET /"+endpoint, cfg.Duration)
		total += queries[endpoint].totalRequests.Load()
	}

	if total == 0 {
		fmt.Println("WARNING: No queries completed. Is searchd running?")
		os.Exit(1)
	}
}

// seedDocuments uploads synthetic documents one at a time. Names carry a run
// prefix so repeated runs against the same server do not collide.
func seedDocuments(client *http.Client, cfg Config) *Stats {
	stats := NewStats()
	run := uuid.NewString()[:8]
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	for i := 0; i < cfg.Documents; i++ {
		name := fmt.Sprintf("loadtest-%s-%05d.txt", run, i)
		body, contentType, err := multipartBody(name, syntheticText(rng, cfg.DocWords))
		if err != nil {
			stats.RecordRequest(0, 0, err)
			continue
		}
		req, err := http.NewRequest(http.MethodPost, cfg.BaseURL+"/files/single", body)
		if err != nil {
			stats.RecordRequest(0, 0, err)
			continue
		}
		req.Header.Set("Content-Type", contentType)
		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			stats.RecordRequest(time.Since(start), 0, err)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		stats.RecordRequest(time.Since(start), resp.StatusCode, nil)
	}
	return stats
}

func runQueries(client *http.Client, cfg Config) map[string]*Stats {
	stats := map[string]*Stats{
		"keywords": NewStats(),
		"infos":    NewStats(),
		"ranked":   NewStats(),
	}
	endpoints := []string{"keywords", "infos", "ranked"}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(w), uint64(time.Now().UnixNano())))
			for i := w; ctx.Err() == nil; i++ {
				endpoint := endpoints[i%len(endpoints)]
				keyword := vocabulary[rng.IntN(len(vocabulary))]
				target := fmt.Sprintf("%s/%s?keyword=%s", cfg.BaseURL, endpoint, url.QueryEscape(keyword))
				if endpoint == "ranked" {
					target += "&limit=10"
				}

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats[endpoint].RecordRequest(0, 0, err)
					continue
				}
				start := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						stats[endpoint].RecordRequest(time.Since(start), 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats[endpoint].RecordRequest(time.Since(start), resp.StatusCode, nil)
			}
		}()
	}
	wg.Wait()
	return stats
}

func syntheticText(rng *rand.Rand, words int) string {
	var b strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		// Skew towards the head of the vocabulary so idf varies across terms.
		idx := int(float64(len(vocabulary)) * rng.Float64() * rng.Float64())
		b.WriteString(vocabulary[idx])
	}
	return b.String()
}

func multipartBody(name, text string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write([]byte(text)); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
