package main

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"mime/multipart"
	"strings"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{50, 5},
		{90, 9},
		{99, 10},
		{0, 1},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if percentile(nil, 50) != 0 {
		t.Error("percentile of empty slice should be 0")
	}
}

func TestStatsReport(t *testing.T) {
	s := NewStats()
	s.RecordRequest(time.Millisecond, 200, nil)
	s.RecordRequest(3*time.Millisecond, 409, nil)
	s.RecordRequest(0, 0, errors.New("refused"))

	var buf bytes.Buffer
	s.Report(&buf, "Uploads", time.Second)
	out := buf.String()
	for _, want := range []string{"Requests:     3", "Successful:   1", "Errors:       2", "200: 1", "409: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestSyntheticTextUsesVocabulary(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	words := strings.Split(syntheticText(rng, 50), " ")
	if len(words) != 50 {
		t.Fatalf("got %d words", len(words))
	}
	known := make(map[string]bool, len(vocabulary))
	for _, w := range vocabulary {
		known[w] = true
	}
	for _, w := range words {
		if !known[w] {
			t.Errorf("unexpected word %q", w)
		}
	}
}

func TestMultipartBody(t *testing.T) {
	body, contentType, err := multipartBody("a.txt", "apple banana")
	if err != nil {
		t.Fatal(err)
	}
	boundary := strings.TrimPrefix(contentType, "multipart/form-data; boundary=")
	part, err := multipart.NewReader(body, boundary).NextPart()
	if err != nil {
		t.Fatal(err)
	}
	if part.FormName() != "file" || part.FileName() != "a.txt" {
		t.Errorf("part = %s/%s", part.FormName(), part.FileName())
	}
}
