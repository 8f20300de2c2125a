package responsemotors

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"car-scraper/config"
	"car-scraper/utils"
)

// BrowserSource renders the inventory page in headless Chrome.
type BrowserSource struct {
	cfg    *config.Config
	logger *utils.Logger
}

// NewBrowserSource creates a chromedp-backed Source.
func NewBrowserSource(cfg *config.Config, logger *utils.Logger) *BrowserSource {
	return &BrowserSource{cfg: cfg, logger: logger}
}

func (b *BrowserSource) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(b.cfg.UserAgent),
		chromedp.WindowSize(1440, 900),
	)
	if bin := findChromeBinary(b.cfg.ChromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}
	return opts
}

// Fetch navigates to pageURL, waits for the page to settle and returns its HTML.
// On failure a screenshot is saved for debugging.
func (b *BrowserSource) Fetch(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	runCtx, cancelRun := context.WithTimeout(tabCtx, b.cfg.PageTimeout)
	defer cancelRun()

	b.logger.Info("[responsemotors] Navigating to %s...", pageURL)

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(b.cfg.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		b.screenshot(tabCtx)
		return "", fmt.Errorf("chromedp render %s: %w", pageURL, err)
	}
	return html, nil
}

func (b *BrowserSource) screenshot(tabCtx context.Context) {
	if b.cfg.ScreenshotPath == "" || tabCtx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(tabCtx, 10*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		b.logger.Warn("[responsemotors] Could not take screenshot: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(b.cfg.ScreenshotPath), 0755); err != nil {
		b.logger.Warn("[responsemotors] Could not create screenshot dir: %v", err)
		return
	}
	if err := os.WriteFile(b.cfg.ScreenshotPath, buf, 0644); err != nil {
		b.logger.Warn("[responsemotors] Could not save screenshot: %v", err)
		return
	}
	b.logger.Info("[responsemotors] Screenshot saved to %s", b.cfg.ScreenshotPath)
}

// findChromeBinary locates Chrome/Chromium. An explicit path wins; an empty
// result lets chromedp use its own lookup.
func findChromeBinary(explicit string) string {
	if explicit != "" {
		return explicit
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
