package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"car-scraper/models"
)

// PostgresMirror copies every upserted listing into PostgreSQL. The CSV file
// remains the source of truth; the mirror exists for ad-hoc SQL over the data.
type PostgresMirror struct {
	db *sql.DB
}

// NewPostgresMirror opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresMirror.
func NewPostgresMirror(ctx context.Context, dsn string) (*PostgresMirror, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pm := &PostgresMirror{db: db}
	if err := pm.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pm, nil
}

func (pm *PostgresMirror) migrate(ctx context.Context) error {
	_, err := pm.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS car_listings (
			id              VARCHAR(16)   PRIMARY KEY,
			source_url      TEXT          NOT NULL,
			source_platform VARCHAR(50)   NOT NULL,
			title           TEXT          NOT NULL,
			make            TEXT,
			model           TEXT,
			year            INTEGER,
			mileage         INTEGER,
			price           NUMERIC(12,2),
			currency        CHAR(3)       NOT NULL,
			description     TEXT,
			location        TEXT,
			image_urls      JSONB         NOT NULL DEFAULT '[]',
			thumbnail_url   TEXT,
			scraped_at      TIMESTAMPTZ   NOT NULL,
			features        JSONB         NOT NULL DEFAULT '{}',
			condition       TEXT,
			vin             TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_car_listings_price      ON car_listings(price);
		CREATE INDEX IF NOT EXISTS idx_car_listings_year       ON car_listings(year);
		CREATE INDEX IF NOT EXISTS idx_car_listings_scraped_at ON car_listings(scraped_at);
	`)
	return err
}

const upsertListingSQL = `
	INSERT INTO car_listings (
		id, source_url, source_platform, title, make, model, year, mileage, price,
		currency, description, location, image_urls, thumbnail_url, scraped_at,
		features, condition, vin
	)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	ON CONFLICT (id) DO UPDATE SET
		source_url      = EXCLUDED.source_url,
		source_platform = EXCLUDED.source_platform,
		title           = EXCLUDED.title,
		make            = EXCLUDED.make,
		model           = EXCLUDED.model,
		year            = EXCLUDED.year,
		mileage         = EXCLUDED.mileage,
		price           = EXCLUDED.price,
		currency        = EXCLUDED.currency,
		description     = EXCLUDED.description,
		location        = EXCLUDED.location,
		image_urls      = EXCLUDED.image_urls,
		thumbnail_url   = EXCLUDED.thumbnail_url,
		scraped_at      = EXCLUDED.scraped_at,
		features        = EXCLUDED.features,
		condition       = EXCLUDED.condition,
		vin             = EXCLUDED.vin
	RETURNING (xmax = 0) AS inserted
`

// Upsert writes the listing and reports whether the row was newly inserted.
func (pm *PostgresMirror) Upsert(ctx context.Context, l *models.Listing) (bool, error) {
	args, err := listingArgs(l)
	if err != nil {
		return false, err
	}

	var inserted bool
	if err := pm.db.QueryRowContext(ctx, upsertListingSQL, args...).Scan(&inserted); err != nil {
		return false, fmt.Errorf("postgres: upsert %s: %w", l.ID, err)
	}
	return inserted, nil
}

// Count returns the number of mirrored listings.
func (pm *PostgresMirror) Count(ctx context.Context) (int, error) {
	var n int
	if err := pm.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM car_listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

func (pm *PostgresMirror) Close() error {
	return pm.db.Close()
}

// listingArgs maps a listing to the positional arguments of upsertListingSQL.
// Absent optional values become SQL NULL.
func listingArgs(l *models.Listing) ([]any, error) {
	images := l.ImageURLs
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode image_urls: %w", err)
	}
	features := l.Features
	if features == nil {
		features = models.Features{}
	}
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode features: %w", err)
	}

	return []any{
		l.ID,
		l.SourceURL,
		l.SourcePlatform,
		l.Title,
		nullString(l.Make),
		nullString(l.Model),
		nullInt(l.Year),
		nullInt(l.Mileage),
		nullFloat(l.Price),
		l.Currency,
		nullString(l.Description),
		nullString(l.Location),
		string(imagesJSON),
		nullString(l.ThumbnailURL),
		l.ScrapedAt,
		string(featuresJSON),
		nullString(l.Condition),
		nullString(l.VIN),
	}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
