package parser

import (
	"strings"

	"book-rag/internal/models"
)

// Chunk slides a fixed window of size runes over text. Window i starts at
// i*(size-overlap); the last window is truncated to whatever text remains and
// is always kept. Boundaries ignore words and sentences.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, &models.ConfigError{Key: "CHUNK_SIZE", Msg: "must be positive"}
	}
	if overlap < 0 || overlap >= size {
		return nil, &models.ConfigError{Key: "CHUNK_OVERLAP", Msg: "must be >= 0 and smaller than the chunk size"}
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := size - overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Reassemble joins chunks produced by Chunk back into the original text by
// dropping the overlapping prefix of every chunk after the first.
func Reassemble(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		runes := []rune(c)
		if len(runes) > overlap {
			b.WriteString(string(runes[overlap:]))
		}
	}
	return b.String()
}

// StripBoilerplate removes public-domain license headers and footers, matched
// by literal marker. Text without markers passes through unmodified.
func StripBoilerplate(text string) string {
	if i := strings.Index(text, models.GutenbergStartMarker); i >= 0 {
		rest := text[i+len(models.GutenbergStartMarker):]
		lineEnd := strings.IndexByte(rest, '\n')
		closing := strings.Index(rest, models.MarkerClose)
		switch {
		case closing >= 0 && (lineEnd < 0 || closing < lineEnd):
			text = rest[closing+len(models.MarkerClose):]
		case lineEnd >= 0:
			text = rest[lineEnd+1:]
		default:
			text = ""
		}
	}
	if i := strings.Index(text, models.GutenbergEndMarker); i >= 0 {
		text = text[:i]
	}
	return text
}
