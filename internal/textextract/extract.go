// Package textextract turns uploaded files into plain text for indexing.
package textextract

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/xiaot623/ragbook/internal/domain"
)

// SupportedExtensions lists the file types Extract accepts.
var SupportedExtensions = []string{".txt", ".md", ".markdown"}

// FileType returns the lower-cased extension of name without the dot.
func FileType(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// Extract returns the text content of a file named name.
func Extract(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.Invalid("file", "is empty")
	}
	if !utf8.Valid(data) {
		return "", domain.Invalid("file", "is not valid UTF-8 text")
	}

	switch "." + FileType(name) {
	case ".txt":
		return string(data), nil
	case ".md", ".markdown":
		return Markdown(data), nil
	}
	return "", domain.Invalid("file", "only "+strings.Join(SupportedExtensions, ", ")+" files are supported")
}

// Markdown renders markdown source to plain text. Block elements are
// separated by blank lines so paragraph chunking keeps them apart.
func Markdown(src []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument && n.Kind() != ast.KindList && n.Kind() != ast.KindListItem {
				endBlock(&buf)
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(buf.String())
}

func endBlock(buf *bytes.Buffer) {
	b := buf.Bytes()
	switch {
	case len(b) == 0:
	case bytes.HasSuffix(b, []byte("\n\n")):
	case b[len(b)-1] == '\n':
		buf.WriteByte('\n')
	default:
		buf.WriteString("\n\n")
	}
}
