package scraper

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"car-scraper/models"
	"car-scraper/utils"
)

var (
	vinRegexp        = regexp.MustCompile(`\b[A-HJ-NPR-Z0-9]{17}\b`)
	featureKeyRegexp = regexp.MustCompile(`[^a-z0-9]+`)
)

// Options configures an Extractor.
type Options struct {
	// InventoryURL is the page the elements came from; relative links resolve against it.
	InventoryURL  string
	Platform      string
	Currency      string
	DebugDumpPath string
	Locators      Locators
}

// Result is the outcome of extracting one page.
type Result struct {
	Listings []*models.Listing
	// Selector is the container selector that matched, empty when none did.
	Selector string
	Elements int
	Skipped  int
	// DumpPath is set when the page source was saved for inspection.
	DumpPath string
}

// Extractor turns a page's listing elements into validated Listings,
// degrading field by field when markup does not match.
type Extractor struct {
	opts   Options
	base   *url.URL
	logger *utils.Logger
	now    func() time.Time

	title       []Strategy[string]
	price       []Strategy[string]
	mileage     []Strategy[string]
	description []Strategy[string]
	location    []Strategy[string]
	condition   []Strategy[string]
	vin         []Strategy[string]
	anchor      []Strategy[string]
	image       []Strategy[string]
}

// NewExtractor builds an Extractor from opts, filling platform and currency defaults.
func NewExtractor(opts Options, logger *utils.Logger) (*Extractor, error) {
	base, err := url.Parse(opts.InventoryURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("scraper: inventory url %q must be absolute", opts.InventoryURL)
	}
	if opts.Platform == "" {
		opts.Platform = models.DefaultPlatform
	}
	if opts.Currency == "" {
		opts.Currency = models.DefaultCurrency
	}

	e := &Extractor{
		opts:        opts,
		base:        base,
		logger:      logger,
		now:         time.Now,
		title:       TextStrategies(opts.Locators.Title),
		price:       TextStrategies(opts.Locators.Price),
		mileage:     TextStrategies(opts.Locators.Mileage),
		description: TextStrategies(opts.Locators.Description),
		location:    TextStrategies(opts.Locators.Location),
		condition:   TextStrategies(opts.Locators.Condition),
		vin:         TextStrategies(opts.Locators.VIN),
	}
	e.title = append(e.title, OwnAttr("data-title"), AttrAt("[data-title]", "data-title"))
	e.price = append(e.price, OwnAttr("data-price"), AttrAt("[data-price]", "data-price"))
	e.mileage = append(e.mileage, OwnAttr("data-mileage"), AttrAt("[data-mileage]", "data-mileage"))
	for _, sel := range opts.Locators.Anchor {
		e.anchor = append(e.anchor, Then(AttrAt(sel, "href"), e.resolve))
	}
	for _, sel := range opts.Locators.Image {
		e.image = append(e.image,
			Then(AttrAt(sel, "src"), e.resolve),
			Then(AttrAt(sel, "data-src"), e.resolve))
	}
	return e, nil
}

func (e *Extractor) resolve(ref string) (string, bool) {
	return ResolveURL(e.base, ref)
}

// Extract locates listing elements on page and extracts each independently.
// When no container selector matches, the page source is dumped for inspection
// and an empty result is returned.
func (e *Extractor) Extract(page Page) Result {
	elements, selector := Locate(page, e.opts.Locators.Containers)
	result := Result{Listings: []*models.Listing{}, Selector: selector, Elements: len(elements)}

	if len(elements) == 0 {
		e.logger.Warn("[extractor] Could not find listings with any of %d known selectors", len(e.opts.Locators.Containers))
		if doc, ok := page.(*Document); ok {
			e.logger.Info("[extractor] Page title: %q", doc.Title())
		}
		e.logger.Info("[extractor] Page content length: %d characters", len(page.HTML()))
		result.DumpPath = e.dumpPage(page)
		return result
	}

	e.logger.Info("[extractor] Found %d listings using selector: %s", len(elements), selector)

	seen := utils.NewSeenSet()
	for idx, el := range elements {
		listing, err := e.ExtractElement(el, idx)
		if err != nil {
			e.logger.Warn("[extractor] Error extracting listing %d: %v", idx, err)
			result.Skipped++
			continue
		}
		seen.Add(listing.ID)
		result.Listings = append(result.Listings, listing)
	}

	for _, id := range seen.Duplicates() {
		e.logger.Warn("[extractor] Listing %s appears more than once on the page; the last one wins in the store", id)
	}
	return result
}

// ExtractElement builds and validates a Listing from one element. index is
// the element's zero-based position on the page.
func (e *Extractor) ExtractElement(el Element, index int) (*models.Listing, error) {
	sourceURL, ok := FirstOf(el, e.anchor...)
	if !ok {
		sourceURL = fallbackURL(e.base, index)
	}

	title, ok := FirstOf(el, e.title...)
	if !ok {
		title = fmt.Sprintf("Vehicle %d", index+1)
	}

	l := models.NewListing(sourceURL, title)
	l.SourcePlatform = e.opts.Platform
	l.Currency = e.opts.Currency
	l.ScrapedAt = e.now()

	if text, ok := FirstOf(el, e.price...); ok {
		if price, ok := ParsePrice(text); ok {
			l.Price = &price
		}
	}
	if text, ok := FirstOf(el, e.mileage...); ok {
		if mileage, ok := ParseMileage(text); ok {
			l.Mileage = &mileage
		}
	}
	if year, ok := ExtractYear(title); ok {
		l.Year = &year
	}
	l.Make, l.Model = SplitMakeModel(title)

	if thumb, ok := FirstOf(el, e.image...); ok {
		l.ThumbnailURL = thumb
		l.ImageURLs = []string{thumb}
	}

	l.Description, _ = FirstOf(el, e.description...)
	l.Location, _ = FirstOf(el, e.location...)
	if text, ok := FirstOf(el, e.condition...); ok {
		l.Condition = strings.ToLower(text)
	}
	if text, ok := FirstOf(el, e.vin...); ok {
		l.VIN = vinRegexp.FindString(strings.ToUpper(text))
	}
	e.extractFeatures(el, l.Features)

	if err := l.Validate(e.now()); err != nil {
		return nil, err
	}
	return l, nil
}

// extractFeatures reads "Label: value" items from the first features list found.
func (e *Extractor) extractFeatures(el Element, features models.Features) {
	for _, sel := range e.opts.Locators.Features {
		items := el.All(sel)
		if len(items) == 0 {
			continue
		}
		for _, item := range items {
			label, value, ok := strings.Cut(item.Text(), ":")
			if !ok {
				continue
			}
			key := strings.Trim(featureKeyRegexp.ReplaceAllString(strings.ToLower(label), "_"), "_")
			value = strings.TrimSpace(value)
			if key == "" || value == "" {
				continue
			}
			features[key] = value
		}
		return
	}
}

func (e *Extractor) dumpPage(page Page) string {
	path := e.opts.DebugDumpPath
	if path == "" {
		return ""
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		e.logger.Warn("[extractor] Could not create dump dir: %v", err)
		return ""
	}
	if err := os.WriteFile(path, []byte(page.HTML()), 0644); err != nil {
		e.logger.Warn("[extractor] Could not save page source: %v", err)
		return ""
	}
	e.logger.Info("[extractor] Saved page source to %s for inspection", path)
	return path
}
