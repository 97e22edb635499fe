package retrieval

import (
	"regexp"
	"strings"

	"github.com/xiaot623/ragbook/internal/domain"
)

// Chunking parameters, in characters.
const (
	FixedChunkSize     = 1000
	FixedChunkOverlap  = 200
	ParagraphChunkSize = 1500
)

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// Chunk splits text according to strategy. Empty chunks are dropped.
func Chunk(text string, strategy domain.ChunkStrategy) ([]string, error) {
	switch strategy {
	case domain.ChunkStrategyFixed, domain.ChunkStrategySimple:
		return FixedChunks(text, FixedChunkSize, FixedChunkOverlap), nil
	case domain.ChunkStrategyParagraph:
		return ParagraphChunks(text, ParagraphChunkSize), nil
	}
	return nil, domain.Invalid("strategy", "use one of fixed, simple, paragraph")
}

// FixedChunks cuts text into windows of size runes, each starting
// overlap runes before the previous one ended.
func FixedChunks(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return chunks
}

// ParagraphChunks splits on blank lines and packs consecutive paragraphs
// into chunks of at most maxChars runes. A single longer paragraph forms its own chunk.
func ParagraphChunks(text string, maxChars int) []string {
	var chunks []string
	var buf []string
	bufLen := 0

	for _, p := range paragraphBreak.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n := len([]rune(p))
		if bufLen+n <= maxChars {
			buf = append(buf, p)
			bufLen += n
			continue
		}
		if len(buf) > 0 {
			chunks = append(chunks, strings.Join(buf, "\n\n"))
		}
		buf = []string{p}
		bufLen = n
	}
	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, "\n\n"))
	}
	return chunks
}
