// Package ingestion defines the response types and Kafka event schemas used
// by the document ingestion pipeline.
package ingestion

import "time"

// DocumentResponse is returned for every accepted upload.
type DocumentResponse struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// IngestEvent is the Kafka message payload that asks the service to store
// and index a document.
type IngestEvent struct {
	DocumentName string `json:"document_name"`
	Content      string `json:"content"`
}

// IndexEvent is published once a document is searchable.
type IndexEvent struct {
	DocumentName string    `json:"document_name"`
	SizeBytes    int64     `json:"size_bytes"`
	TermCount    int       `json:"term_count"`
	IndexedAt    time.Time `json:"indexed_at"`
}
