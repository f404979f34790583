package renderer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/fioreale/PaperFlow/internal/extractor"
)

const (
	maxFilenameLen = 100
	truncatedNote  = "\n\n<p><em>[Content truncated due to length]</em></p>"
)

// Paper dimensions in inches for Chrome's print backend.
var paperSizes = map[string][2]float64{
	"A4":     {8.27, 11.69},
	"Letter": {8.5, 11.0},
}

// RenderError is returned when PDF generation fails.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to generate PDF: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Config holds renderer settings.
type Config struct {
	OutputDir        string
	PageSize         string  // "A4" or "Letter"
	Margin           float64 // uniform margin in inches
	MaxArticleLength int     // content bytes before truncation
	Timeout          time.Duration
}

// Service renders articles to PDF files. The article is laid out with an
// embedded print template, printed through headless Chrome, and the
// resulting file is validated before it is reported as an artifact.
type Service struct {
	cfg    Config
	tmpl   *template.Template
	logger *slog.Logger
}

// NewService creates a renderer and ensures the output directory exists.
func NewService(cfg Config, logger *slog.Logger) (*Service, error) {
	if cfg.PageSize == "" {
		cfg.PageSize = "A4"
	}
	if _, ok := paperSizes[cfg.PageSize]; !ok {
		return nil, fmt.Errorf("unsupported page size: %s", cfg.PageSize)
	}
	if cfg.Margin <= 0 {
		cfg.Margin = 0.6
	}
	if cfg.MaxArticleLength <= 0 {
		cfg.MaxArticleLength = 500_000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	tmpl, err := template.New("article").Parse(articleTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse article template: %w", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Service{cfg: cfg, tmpl: tmpl, logger: logger}, nil
}

type templateData struct {
	Title         string
	Author        string
	DatePublished string
	URL           string
	Content       template.HTML
}

// GeneratePDF renders the article and writes the PDF to outputPath.
// Returns the path of the generated file.
func (s *Service) GeneratePDF(ctx context.Context, article *extractor.Article, outputPath string) (string, error) {
	content := truncateContent(article.Content, s.cfg.MaxArticleLength)

	var htmlBuf bytes.Buffer
	err := s.tmpl.Execute(&htmlBuf, templateData{
		Title:         article.Title,
		Author:        article.Author,
		DatePublished: article.DatePublished,
		URL:           article.URL,
		Content:       template.HTML(content),
	})
	if err != nil {
		return "", &RenderError{Err: fmt.Errorf("template execution: %w", err)}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", &RenderError{Err: err}
	}

	htmlFile := outputPath + ".temp.html"
	if err := os.WriteFile(htmlFile, htmlBuf.Bytes(), 0o644); err != nil {
		return "", &RenderError{Err: fmt.Errorf("write temp html: %w", err)}
	}
	defer os.Remove(htmlFile)

	pdfBuf, err := s.printToPDF(ctx, htmlFile)
	if err != nil {
		return "", &RenderError{Err: err}
	}
	if err := os.WriteFile(outputPath, pdfBuf, 0o644); err != nil {
		return "", &RenderError{Err: fmt.Errorf("write pdf: %w", err)}
	}

	// Reject output Chrome produced but cannot be read back as a PDF.
	if err := api.ValidateFile(outputPath, nil); err != nil {
		os.Remove(outputPath)
		return "", &RenderError{Err: fmt.Errorf("invalid pdf produced: %w", err)}
	}

	if pages, err := api.PageCountFile(outputPath); err == nil {
		s.logger.Info("PDF generated",
			slog.String("path", outputPath),
			slog.Int("pages", pages),
			slog.Int("bytes", len(pdfBuf)),
		)
	}

	return outputPath, nil
}

// printToPDF loads the rendered HTML in headless Chrome and prints it.
func (s *Service) printToPDF(ctx context.Context, htmlFile string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	absPath, err := filepath.Abs(htmlFile)
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	size := paperSizes[s.cfg.PageSize]
	margin := s.cfg.Margin

	var pdfBuf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+absPath),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(false).
				WithPreferCSSPageSize(false).
				WithPaperWidth(size[0]).
				WithPaperHeight(size[1]).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return pdfBuf, nil
}

// truncateContent caps the article body at max bytes, backing off to a
// rune boundary so the cut never leaves an invalid UTF-8 sequence in
// the rendered HTML.
func truncateContent(content string, max int) string {
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + truncatedNote
}

// SanitizeFilename turns an article title into a safe PDF filename:
// filesystem-invalid characters become underscores, the name is capped
// at 100 runes and stripped of stray dots and spaces, and an empty
// result falls back to "article".
func SanitizeFilename(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*', '\n', '\t', '\r':
			return '_'
		}
		return r
	}, title)

	runes := []rune(name)
	if len(runes) > maxFilenameLen {
		name = string(runes[:maxFilenameLen])
	}
	name = strings.Trim(name, ". ")
	if name == "" {
		name = "article"
	}
	return name + ".pdf"
}

// OutputPathFor computes the deterministic output path for a job. The
// job id prefix keeps files for identically titled articles apart.
func (s *Service) OutputPathFor(jobID, title string) string {
	return filepath.Join(s.cfg.OutputDir, jobID+"_"+SanitizeFilename(title))
}
