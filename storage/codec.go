package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"car-scraper/models"
)

// Columns is the fixed column order of the flat-file store.
var Columns = []string{
	"id", "source_url", "source_platform", "title", "make", "model",
	"year", "mileage", "price", "currency", "description", "location",
	"image_urls", "thumbnail_url", "scraped_at", "features",
	"condition", "vin",
}

const (
	colID = iota
	colSourceURL
	colSourcePlatform
	colTitle
	colMake
	colModel
	colYear
	colMileage
	colPrice
	colCurrency
	colDescription
	colLocation
	colImageURLs
	colThumbnailURL
	colScrapedAt
	colFeatures
	colCondition
	colVIN
)

// localTimestamp accepts ISO-8601 timestamps written without a zone offset.
const localTimestamp = "2006-01-02T15:04:05.999999999"

// EncodeRow serialises a listing into its column values.
func EncodeRow(l *models.Listing) ([]string, error) {
	images := l.ImageURLs
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("storage: encode image_urls: %w", err)
	}

	features := l.Features
	if features == nil {
		features = models.Features{}
	}
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("storage: encode features: %w", err)
	}

	row := make([]string, len(Columns))
	row[colID] = l.ID
	row[colSourceURL] = l.SourceURL
	row[colSourcePlatform] = l.SourcePlatform
	row[colTitle] = l.Title
	row[colMake] = l.Make
	row[colModel] = l.Model
	row[colYear] = formatInt(l.Year)
	row[colMileage] = formatInt(l.Mileage)
	row[colPrice] = formatFloat(l.Price)
	row[colCurrency] = l.Currency
	row[colDescription] = l.Description
	row[colLocation] = l.Location
	row[colImageURLs] = string(imagesJSON)
	row[colThumbnailURL] = l.ThumbnailURL
	row[colScrapedAt] = l.ScrapedAt.Format(time.RFC3339Nano)
	row[colFeatures] = string(featuresJSON)
	row[colCondition] = l.Condition
	row[colVIN] = l.VIN
	return row, nil
}

// DecodeRow parses column values back into a listing and validates it.
func DecodeRow(row []string, now time.Time) (*models.Listing, error) {
	if len(row) != len(Columns) {
		return nil, fmt.Errorf("storage: expected %d fields, got %d", len(Columns), len(row))
	}

	l := &models.Listing{
		ID:             row[colID],
		SourceURL:      row[colSourceURL],
		SourcePlatform: row[colSourcePlatform],
		Title:          row[colTitle],
		Make:           row[colMake],
		Model:          row[colModel],
		Currency:       row[colCurrency],
		Description:    row[colDescription],
		Location:       row[colLocation],
		ThumbnailURL:   row[colThumbnailURL],
		Condition:      row[colCondition],
		VIN:            row[colVIN],
		ImageURLs:      []string{},
		Features:       models.Features{},
	}
	if l.SourcePlatform == "" {
		l.SourcePlatform = models.DefaultPlatform
	}
	if l.Currency == "" {
		l.Currency = models.DefaultCurrency
	}

	var err error
	if l.Year, err = parseInt(row[colYear]); err != nil {
		return nil, fmt.Errorf("storage: year: %w", err)
	}
	if l.Mileage, err = parseInt(row[colMileage]); err != nil {
		return nil, fmt.Errorf("storage: mileage: %w", err)
	}
	if l.Price, err = parseFloat(row[colPrice]); err != nil {
		return nil, fmt.Errorf("storage: price: %w", err)
	}
	if l.ScrapedAt, err = parseTimestamp(row[colScrapedAt]); err != nil {
		return nil, fmt.Errorf("storage: scraped_at: %w", err)
	}

	if raw := strings.TrimSpace(row[colImageURLs]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &l.ImageURLs); err != nil {
			return nil, fmt.Errorf("storage: image_urls: %w", err)
		}
		if l.ImageURLs == nil {
			l.ImageURLs = []string{}
		}
	}
	if raw := strings.TrimSpace(row[colFeatures]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &l.Features); err != nil {
			return nil, fmt.Errorf("storage: features: %w", err)
		}
		if l.Features == nil {
			l.Features = models.Features{}
		}
	}

	if err := l.Validate(now); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return l, nil
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(localTimestamp, s, time.Local)
}
