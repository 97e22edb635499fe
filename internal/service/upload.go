package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xiaot623/ragbook/internal/domain"
	"github.com/xiaot623/ragbook/internal/textextract"
)

// ErrIngestDisabled is returned when no ingestor is configured.
var ErrIngestDisabled = errors.New("document ingestion is not configured")

// Upload extracts text from a file and indexes it with strategy.
// Indexing runs inline: the response is returned once the document is searchable.
func (s *Service) Upload(ctx context.Context, filename string, data []byte, strategy domain.ChunkStrategy) (*domain.UploadResponse, error) {
	if s.ingestor == nil {
		return nil, ErrIngestDisabled
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		return nil, domain.Invalid("filename", "is required")
	}
	if strategy == "" {
		strategy = domain.ChunkStrategyFixed
	}
	if !strategy.Valid() {
		return nil, domain.Invalid("strategy", "use one of fixed, simple, paragraph")
	}

	text, err := textextract.Extract(name, data)
	if err != nil {
		return nil, err
	}

	doc, err := s.ingestor.Ingest(ctx, name, text, strategy)
	if err != nil {
		s.log.WithError(err).WithField("file", name).Error("failed to ingest document")
		return nil, err
	}

	return &domain.UploadResponse{
		Message:     fmt.Sprintf("File '%s' uploaded and indexed successfully.", name),
		FileType:    textextract.FileType(name),
		FileName:    name,
		DocumentID:  doc.DocumentID,
		TotalChunks: doc.TotalChunks,
	}, nil
}
