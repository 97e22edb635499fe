package domain

import "time"

// RetrievalHit is a scored passage returned by a similarity search.
type RetrievalHit struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Source is a deduplicated citation attached to an answer.
type Source struct {
	Source  string `json:"source"`
	Preview string `json:"preview"`
}

// Answer is the composer's grounded reply.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Document is metadata recorded for an ingested file.
type Document struct {
	DocumentID  string        `json:"document_id"`
	FileName    string        `json:"file_name"`
	Strategy    ChunkStrategy `json:"strategy"`
	TotalChunks int           `json:"total_chunks"`
	ChunkIDs    []string      `json:"chunk_ids,omitempty"`
	TextPreview string        `json:"text_preview"`
	CreatedAt   time.Time     `json:"created_at"`
}
