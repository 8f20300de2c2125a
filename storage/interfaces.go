package storage

import (
	"context"

	"car-scraper/models"
)

// ListingStore is the interface the durable record store satisfies.
type ListingStore interface {
	Upsert(listing *models.Listing) (isNew bool, err error)
	Get(id string) (*models.Listing, error)
	ScanAll() ([]*models.Listing, error)
	ScanRecent(limit int) ([]*models.Listing, error)
	Count() (int, error)
}

// ListingMirror is a secondary sink that receives every upserted listing.
type ListingMirror interface {
	Upsert(ctx context.Context, listing *models.Listing) (isNew bool, err error)
	Close() error
}
