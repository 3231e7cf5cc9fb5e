package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"book-rag/internal/models"
)

func knownText(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[i%len(alphabet)])
	}
	return b.String()
}

func TestChunkAliceScenario(t *testing.T) {
	text := knownText(1200)

	chunks, err := Chunk(text, 500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, text[0:500], chunks[0])
	assert.Equal(t, text[400:900], chunks[1])
	assert.Equal(t, text[800:1200], chunks[2])
	assert.Len(t, chunks[2], 400)
}

func TestChunkLossless(t *testing.T) {
	texts := []string{
		"a",
		knownText(7),
		knownText(499),
		knownText(500),
		knownText(501),
		knownText(1234),
		strings.Repeat("Alice was beginning to get very tired. ", 40),
		strings.Repeat("Ünïcödé — ✓ ", 90),
	}
	params := []struct{ size, overlap int }{
		{500, 100}, {10, 0}, {10, 9}, {3, 1}, {1, 0}, {64, 32},
	}

	for _, text := range texts {
		for _, p := range params {
			chunks, err := Chunk(text, p.size, p.overlap)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			assert.Equal(t, text, Reassemble(chunks, p.overlap), "size=%d overlap=%d", p.size, p.overlap)

			last := []rune(chunks[len(chunks)-1])
			assert.NotEmpty(t, last)
			assert.LessOrEqual(t, len(last), p.size)
			for _, c := range chunks[:len(chunks)-1] {
				assert.Len(t, []rune(c), p.size)
			}
		}
	}
}

func TestChunkCountsRunes(t *testing.T) {
	chunks, err := Chunk("ééééé", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"éé", "éé", "é"}, chunks)
}

func TestChunkEmpty(t *testing.T) {
	chunks, err := Chunk("", 500, 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkInvalidParameters(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
		{"overlap equals size", 10, 10},
		{"overlap above size", 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Chunk("text", tt.size, tt.overlap)
			assert.True(t, errors.Is(err, models.ErrConfig))
		})
	}
}

func TestStripBoilerplate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no markers",
			in:   "Alice was beginning to get very tired.",
			want: "Alice was beginning to get very tired.",
		},
		{
			name: "header and footer",
			in:   "License blah\n*** START OF THE PROJECT GUTENBERG EBOOK ALICE ***\nChapter I\n*** END OF THE PROJECT GUTENBERG EBOOK ALICE ***\nMore license",
			want: "\nChapter I\n",
		},
		{
			name: "header only",
			in:   "*** START OF THIS EBOOK ***Story",
			want: "Story",
		},
		{
			name: "footer only",
			in:   "Story\n*** END OF THIS EBOOK ***",
			want: "Story\n",
		},
		{
			name: "start marker without closing stars",
			in:   "*** START OF THIS EBOOK\nStory",
			want: "Story",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripBoilerplate(tt.in))
		})
	}
}
