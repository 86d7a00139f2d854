package idealista

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"idealista-pricing/config"
	"idealista-pricing/models"
	"idealista-pricing/utils"
)

// Renderer returns the HTML of a page after it has loaded.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// PageError records a listing page that could not be rendered or extracted.
type PageError struct {
	URL string
	Err error
}

// Scraper renders listing pages and extracts one record per page.
type Scraper struct {
	cfg      *config.Config
	logger   *utils.Logger
	renderer Renderer
	pool     *utils.WorkerPool
	visited  *utils.URLSet
}

// New creates a Scraper that renders pages with renderer.
func New(cfg *config.Config, logger *utils.Logger, renderer Renderer) *Scraper {
	return &Scraper{
		cfg:      cfg,
		logger:   logger,
		renderer: renderer,
		pool:     utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		visited:  utils.NewURLSet(),
	}
}

// Scrape renders and extracts every distinct URL. A page either yields a
// complete record or a PageError; partial records are never returned.
// onDone, when non-nil, is called after each page.
func (s *Scraper) Scrape(ctx context.Context, urls []string, onDone func()) ([]*models.ScrapedListing, []PageError) {
	s.logger.Info("[scraper] Starting scrape of %d listing pages (concurrency %d)",
		len(urls), s.cfg.MaxConcurrency)

	type page struct {
		url     string
		listing *models.ScrapedListing
		err     error
	}
	// Jobs write only their own slot; results keep the input order.
	slots := make([]page, len(urls))
	n := 0

	for _, u := range urls {
		pageURL := strings.TrimSpace(u)
		if pageURL == "" {
			continue
		}
		if !s.visited.Add(pageURL) {
			s.logger.Debug("[scraper] Skipping duplicate: %s", pageURL)
			continue
		}

		slot := &slots[n]
		slot.url = pageURL
		ok := s.pool.Submit(ctx, func(ctx context.Context) {
			if onDone != nil {
				defer onDone()
			}
			slot.listing, slot.err = s.scrapePage(ctx, pageURL)
		})
		if !ok {
			break
		}
		n++
	}
	s.pool.Wait()

	var (
		listings []*models.ScrapedListing
		failures []PageError
	)
	for _, p := range slots[:n] {
		switch {
		case p.err != nil:
			s.logger.Warn("[scraper] %s: %v", p.url, p.err)
			failures = append(failures, PageError{URL: p.url, Err: p.err})
		case p.listing != nil:
			listings = append(listings, p.listing)
		}
	}

	s.logger.Info("[scraper] Scrape complete: %d extracted, %d failed", len(listings), len(failures))
	return listings, failures
}

func (s *Scraper) scrapePage(ctx context.Context, pageURL string) (*models.ScrapedListing, error) {
	html, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	listing, err := ExtractHTML(strings.NewReader(html), s.cfg.SizeFieldIndex)
	if err != nil {
		return nil, err
	}
	if listing.URL == "" {
		listing.URL = pageURL
	}
	return listing, nil
}

// ChromeRenderer renders pages in a shared headless Chrome instance, one tab
// per page.
type ChromeRenderer struct {
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	timeout     time.Duration
}

// NewChromeRenderer starts a headless browser. chromeBin may be empty to
// search the usual install locations.
func NewChromeRenderer(logger *utils.Logger, chromeBin string) (*ChromeRenderer, error) {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[scraper] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// Start the browser now so tabs opened later share it.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &ChromeRenderer{
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
		timeout:     60 * time.Second,
	}, nil
}

// Render opens url in a new tab and returns the document HTML.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	tabCtx, cancel := chromedp.NewContext(r.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp: %w", err)
	}
	return html, nil
}

// Close shuts the browser down.
func (r *ChromeRenderer) Close() {
	r.cancelTab()
	r.cancelAlloc()
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
