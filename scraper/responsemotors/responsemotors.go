package responsemotors

import (
	"context"
	"fmt"
	"time"

	"car-scraper/config"
	"car-scraper/scraper"
	"car-scraper/utils"
)

// Source returns the rendered HTML of a page.
type Source interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// NewSource picks the Source implementation named by cfg.FetchMode.
func NewSource(cfg *config.Config, logger *utils.Logger) (Source, error) {
	switch cfg.FetchMode {
	case config.FetchModeBrowser, "":
		return NewBrowserSource(cfg, logger), nil
	case config.FetchModeStatic:
		return NewStaticSource(cfg, logger), nil
	default:
		return nil, fmt.Errorf("responsemotors: unknown fetch mode %q", cfg.FetchMode)
	}
}

// Scraper gathers the dealership inventory page and extracts its listings.
type Scraper struct {
	cfg       *config.Config
	logger    *utils.Logger
	source    Source
	extractor *scraper.Extractor
	retry     *utils.RetryConfig
}

// New creates a ready-to-use Scraper.
func New(cfg *config.Config, logger *utils.Logger, source Source, extractor *scraper.Extractor) *Scraper {
	return &Scraper{
		cfg:       cfg,
		logger:    logger,
		source:    source,
		extractor: extractor,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// NewExtractor builds the Extractor for cfg, applying any selector overrides file.
func NewExtractor(cfg *config.Config, logger *utils.Logger) (*scraper.Extractor, error) {
	locators, err := scraper.LoadLocators(cfg.SelectorsFile)
	if err != nil {
		return nil, err
	}
	return scraper.NewExtractor(scraper.Options{
		InventoryURL:  cfg.InventoryURL,
		Platform:      cfg.SourcePlatform,
		Currency:      cfg.Currency,
		DebugDumpPath: cfg.DebugDumpPath,
		Locators:      locators,
	}, logger)
}

// Scrape fetches the inventory page (with retries) and extracts every listing on it.
func (s *Scraper) Scrape(ctx context.Context) (scraper.Result, error) {
	s.logger.Info("[responsemotors] Starting scrape of %s", s.cfg.InventoryURL)

	var html string
	err := s.retry.Do(ctx, "fetch-inventory", func(ctx context.Context) error {
		h, err := s.source.Fetch(ctx, s.cfg.InventoryURL)
		if err != nil {
			return err
		}
		html = h
		return nil
	})
	if err != nil {
		return scraper.Result{}, fmt.Errorf("responsemotors: %w", err)
	}

	doc, err := scraper.NewDocument(html)
	if err != nil {
		return scraper.Result{}, fmt.Errorf("responsemotors: %w", err)
	}

	result := s.extractor.Extract(doc)
	s.logger.Info("[responsemotors] Successfully gathered %d listings (%d skipped)",
		len(result.Listings), result.Skipped)
	return result, nil
}
