package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Stats aggregates the outcomes of one endpoint.
type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 10000),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, duration)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

// Report writes the summary of s to w.
func (s *Stats) Report(w io.Writer, name string, elapsed time.Duration) {
	total := s.totalRequests.Load()
	errs := s.errorCount.Load()

	fmt.Fprintf(w, "=== %s ===\n", name)
	fmt.Fprintf(w, "Requests:     %d\n", total)
	fmt.Fprintf(w, "Successful:   %d\n", s.successCount.Load())
	fmt.Fprintf(w, "Errors:       %d\n", errs)
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:   %.2f%%\n", float64(errs)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec: %.2f\n", float64(total)/elapsed.Seconds())
	}

	s.mu.Lock()
	latencies := make([]time.Duration, len(s.latencies))
	copy(latencies, s.latencies)
	codes := make([]int, 0, len(s.statusCodes))
	for code := range s.statusCodes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(s.statusCodes))
	for code, n := range s.statusCodes {
		counts[code] = n
	}
	s.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		avg := mean(latencies)
		fmt.Fprintf(w, "Latency min/avg/max: %s / %s / %s\n", latencies[0], avg, latencies[len(latencies)-1])
		fmt.Fprintf(w, "P50 %s  P90 %s  P95 %s  P99 %s\n",
			percentile(latencies, 50),
			percentile(latencies, 90),
			percentile(latencies, 95),
			percentile(latencies, 99),
		)
		fmt.Fprintf(w, "StdDev: %s\n", stddev(latencies, avg))
	}

	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, counts[code])
	}
	fmt.Fprintln(w)
}

func mean(latencies []time.Duration) time.Duration {
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	return sum / time.Duration(len(latencies))
}

func stddev(latencies []time.Duration, avg time.Duration) time.Duration {
	var sumSquared float64
	for _, l := range latencies {
		diff := float64(l - avg)
		sumSquared += diff * diff
	}
	return time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
