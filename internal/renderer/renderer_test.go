package renderer

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewService_Defaults(t *testing.T) {
	svc, err := NewService(Config{OutputDir: t.TempDir()}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, "A4", svc.cfg.PageSize)
	assert.Equal(t, 0.6, svc.cfg.Margin)
	assert.Equal(t, 500_000, svc.cfg.MaxArticleLength)
	assert.Equal(t, 60*time.Second, svc.cfg.Timeout)
}

func TestNewService_UnsupportedPageSize(t *testing.T) {
	_, err := NewService(Config{OutputDir: t.TempDir(), PageSize: "A5"}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported page size")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "plain title",
			title: "The Go Memory Model",
			want:  "The Go Memory Model.pdf",
		},
		{
			name:  "invalid characters replaced",
			title: `What? A "Path" <Like>: this/that\other|thing*`,
			want:  "What_ A _Path_ _Like__ this_that_other_thing_.pdf",
		},
		{
			name:  "newlines and tabs replaced",
			title: "Line\nBreak\tTitle",
			want:  "Line_Break_Title.pdf",
		},
		{
			name:  "trailing dots and spaces trimmed",
			title: "  Trailing dots... ",
			want:  "Trailing dots.pdf",
		},
		{
			name:  "empty title falls back",
			title: "",
			want:  "article.pdf",
		},
		{
			name:  "title of only separators falls back",
			title: " ... ",
			want:  "article.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.title))
		})
	}
}

func TestSanitizeFilename_CapsLength(t *testing.T) {
	long := strings.Repeat("a", 250)
	got := SanitizeFilename(long)

	assert.True(t, strings.HasSuffix(got, ".pdf"))
	assert.Len(t, []rune(strings.TrimSuffix(got, ".pdf")), maxFilenameLen)
}

func TestTruncateContent(t *testing.T) {
	t.Run("short content untouched", func(t *testing.T) {
		got := truncateContent("<p>short</p>", 100)
		assert.Equal(t, "<p>short</p>", got)
	})

	t.Run("long content cut with note", func(t *testing.T) {
		got := truncateContent(strings.Repeat("a", 50), 10)
		assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 10)))
		assert.True(t, strings.HasSuffix(got, truncatedNote))
		assert.True(t, utf8.ValidString(got))
	})

	t.Run("cut backs off to a rune boundary", func(t *testing.T) {
		// "é" is two bytes; a byte-index cut at 5 would land mid-rune.
		got := truncateContent(strings.Repeat("é", 10), 5)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, "éé"+truncatedNote, got)
	})
}

func TestOutputPathFor(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewService(Config{OutputDir: dir}, testLogger())
	require.NoError(t, err)

	got := svc.OutputPathFor("abc-123", "My Article")
	assert.Equal(t, filepath.Join(dir, "abc-123_My Article.pdf"), got)

	// Identical titles still diverge through the job id prefix.
	other := svc.OutputPathFor("def-456", "My Article")
	assert.NotEqual(t, got, other)
}
