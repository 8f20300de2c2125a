package models

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	DefaultPlatform = "responsemotors"
	DefaultCurrency = "USD"

	// MinYear is the earliest model year accepted.
	MinYear = 1900

	idLength = 16
)

// ErrInvalidListing is wrapped by every validation failure.
var ErrInvalidListing = errors.New("invalid listing")

// Features is an open-schema bag of extra vehicle attributes, stored as an
// opaque JSON document. Numbers come back as float64.
type Features map[string]any

// Listing is one vehicle record gathered from the dealership inventory.
// Optional strings use "" for absent; optional numbers are nil when absent.
type Listing struct {
	ID             string    `json:"id"`
	SourceURL      string    `json:"source_url"`
	SourcePlatform string    `json:"source_platform"`
	Title          string    `json:"title"`
	Make           string    `json:"make,omitempty"`
	Model          string    `json:"model,omitempty"`
	Year           *int      `json:"year,omitempty"`
	Mileage        *int      `json:"mileage,omitempty"`
	Price          *float64  `json:"price,omitempty"`
	Currency       string    `json:"currency"`
	Description    string    `json:"description,omitempty"`
	Location       string    `json:"location,omitempty"`
	ImageURLs      []string  `json:"image_urls"`
	ThumbnailURL   string    `json:"thumbnail_url,omitempty"`
	ScrapedAt      time.Time `json:"scraped_at"`
	Features       Features  `json:"features"`
	Condition      string    `json:"condition,omitempty"`
	VIN            string    `json:"vin,omitempty"`
}

// ListingID derives the stable identifier for a source URL.
func ListingID(sourceURL string) string {
	sum := md5.Sum([]byte(sourceURL))
	return hex.EncodeToString(sum[:])[:idLength]
}

// NewListing returns a Listing with its id derived from sourceURL and the
// platform, currency and timestamp defaults applied.
func NewListing(sourceURL, title string) *Listing {
	return &Listing{
		ID:             ListingID(sourceURL),
		SourceURL:      sourceURL,
		SourcePlatform: DefaultPlatform,
		Title:          title,
		Currency:       DefaultCurrency,
		ImageURLs:      []string{},
		ScrapedAt:      time.Now(),
		Features:       Features{},
	}
}

// Validate checks the field constraints a record must satisfy before it is stored.
func (l *Listing) Validate(now time.Time) error {
	if l.SourceURL == "" {
		return fmt.Errorf("%w: source_url is required", ErrInvalidListing)
	}
	u, err := url.Parse(l.SourceURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: source_url %q is not absolute", ErrInvalidListing, l.SourceURL)
	}
	if l.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidListing)
	}
	if l.ID != ListingID(l.SourceURL) {
		return fmt.Errorf("%w: id %s does not match source_url", ErrInvalidListing, l.ID)
	}
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidListing)
	}
	if l.Year != nil {
		if *l.Year < MinYear || *l.Year > now.Year()+1 {
			return fmt.Errorf("%w: year %d is not valid", ErrInvalidListing, *l.Year)
		}
	}
	if l.Mileage != nil && *l.Mileage < 0 {
		return fmt.Errorf("%w: mileage cannot be negative", ErrInvalidListing)
	}
	if l.Price != nil && *l.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidListing)
	}
	if len(l.Currency) != 3 {
		return fmt.Errorf("%w: currency %q is not a 3-letter code", ErrInvalidListing, l.Currency)
	}
	return nil
}

// String renders a one-line summary such as "2019 Honda Civic LX - $25,999 - 42000 miles".
func (l *Listing) String() string {
	year := "????"
	if l.Year != nil {
		year = fmt.Sprintf("%d", *l.Year)
	}
	var price int64
	if l.Price != nil {
		price = int64(*l.Price + 0.5)
	}
	mileage := "???"
	if l.Mileage != nil {
		mileage = fmt.Sprintf("%d", *l.Mileage)
	}
	return fmt.Sprintf("%s %s %s - $%s - %s miles",
		year, orDefault(l.Make, "Unknown"), orDefault(l.Model, "Unknown"),
		humanize.Comma(price), mileage)
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

// RunReport holds the summary statistics for a single scrape run.
type RunReport struct {
	TotalListings   int
	NewListings     int
	UpdatedListings int
	StoredListings  int

	PricedListings int
	AveragePrice   float64
	MinPrice       float64
	MaxPrice       float64
	MostExpensive  *Listing

	MileageListings int
	AverageMileage  int

	YearListings int
	MinYear      int
	MaxYear      int
}
