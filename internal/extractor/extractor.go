package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Article holds the structured content extracted from a web page.
type Article struct {
	Title         string
	Author        string
	Content       string // cleaned HTML body
	Excerpt       string
	DatePublished string
	URL           string
}

// ExtractError is returned for any extraction failure: fetch, timeout,
// or unparseable content.
type ExtractError struct {
	URL string
	Err error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("failed to extract article from %s: %v", e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Config holds extractor settings.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Service extracts readable article content from a URL. The page is
// fetched with headless Chrome so JavaScript-rendered articles come back
// fully populated, then reduced to readable content.
type Service struct {
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// NewService creates an extractor service.
func NewService(cfg Config, logger *slog.Logger) *Service {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Service{
		timeout:   timeout,
		userAgent: ua,
		logger:    logger,
	}
}

// ExtractArticle fetches the page and extracts its readable content.
func (s *Service) ExtractArticle(ctx context.Context, pageURL string) (*Article, error) {
	parsed, err := url.ParseRequestURI(pageURL)
	if err != nil {
		return nil, &ExtractError{URL: pageURL, Err: err}
	}

	html, err := s.fetchHTML(ctx, pageURL)
	if err != nil {
		return nil, &ExtractError{URL: pageURL, Err: err}
	}

	art, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return nil, &ExtractError{URL: pageURL, Err: fmt.Errorf("readability parse: %w", err)}
	}

	title := art.Title
	if title == "" {
		title = titleFromHTML(html)
	}

	content := art.Content
	if content == "" {
		// Readability struck out; fall back to the raw page so the
		// renderer still has something to lay out.
		content = html
	} else {
		content = cleanContent(content, pageURL)
	}

	var datePublished string
	if art.PublishedTime != nil {
		datePublished = art.PublishedTime.Format("2006-01-02")
	}

	s.logger.Info("Article extracted",
		slog.String("url", pageURL),
		slog.String("title", title),
		slog.Int("content_bytes", len(content)),
	)

	return &Article{
		Title:         title,
		Author:        art.Byline,
		Content:       content,
		Excerpt:       art.Excerpt,
		DatePublished: datePublished,
		URL:           pageURL,
	}, nil
}

// fetchHTML loads the page in headless Chrome and returns the rendered
// DOM. The browser gets a short settle delay after load so dynamic
// content has a chance to appear.
func (s *Service) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(s.userAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	return html, nil
}

var titleTagRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// titleFromHTML pulls the <title> tag as a last resort.
func titleFromHTML(html string) string {
	if m := titleTagRe.FindStringSubmatch(html); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title
		}
	}
	return "Untitled Article"
}
