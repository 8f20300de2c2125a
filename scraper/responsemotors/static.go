package responsemotors

import (
	"context"
	"fmt"

	"github.com/gocolly/colly/v2"

	"car-scraper/config"
	"car-scraper/utils"
)

// StaticSource fetches the inventory page over plain HTTP without rendering
// scripts. It serves sites whose listings are server-rendered.
type StaticSource struct {
	cfg    *config.Config
	logger *utils.Logger
}

// NewStaticSource creates a colly-backed Source.
func NewStaticSource(cfg *config.Config, logger *utils.Logger) *StaticSource {
	return &StaticSource{cfg: cfg, logger: logger}
}

// Fetch downloads pageURL and returns the response body.
func (s *StaticSource) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := colly.NewCollector(
		colly.UserAgent(s.cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(s.cfg.PageTimeout)

	var body string
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("request %v failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	s.logger.Info("[responsemotors] Fetching %s...", pageURL)
	if err := c.Visit(pageURL); err != nil {
		if fetchErr != nil {
			return "", fetchErr
		}
		return "", fmt.Errorf("visit %s: %w", pageURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	return body, nil
}
