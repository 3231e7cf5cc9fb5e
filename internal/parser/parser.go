package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"book-rag/internal/models"
)

// SupportedExtensions lists the book formats ExtractText understands.
var SupportedExtensions = []string{".txt", ".md", ".markdown", ".pdf", ".docx"}

// ExtractText turns an uploaded book file into raw text, dispatching on the
// file extension.
func ExtractText(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return parseText(data)
	case ".md", ".markdown":
		return parseMarkdown(data)
	case ".pdf":
		return parsePDF(data)
	case ".docx":
		return parseDOCX(data)
	default:
		return "", fmt.Errorf("%w: %q (supported: %s)", models.ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions, ", "))
	}
}

func parseText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text is not valid UTF-8", models.ErrInvalidInput)
	}
	// drop a UTF-8 byte order mark
	return strings.TrimPrefix(string(data), "\uFEFF"), nil
}

// parseMarkdown keeps the text nodes of the document and drops markup.
func parseMarkdown(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: markdown is not valid UTF-8", models.ErrInvalidInput)
	}
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(data))

	var b strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(data))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := node.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(data))
				}
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if !entering {
				b.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk markdown: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}

func parsePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: failed to open pdf: %v", models.ErrInvalidInput, err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxBreak        = regexp.MustCompile(`<w:(br|tab)[^>]*/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: failed to open docx: %v", models.ErrInvalidInput, err)
	}
	defer r.Close()

	return extractTextFromXML(r.Editable().GetContent()), nil
}

// extractTextFromXML keeps the character data of a WordprocessingML body,
// one paragraph per line.
func extractTextFromXML(xmlContent string) string {
	content := docxParagraphEnd.ReplaceAllString(xmlContent, "\n")
	content = docxBreak.ReplaceAllString(content, " ")
	content = xmlTag.ReplaceAllString(content, "")
	content = xmlUnescaper.Replace(content)
	return strings.TrimSpace(content)
}

var xmlUnescaper = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")
