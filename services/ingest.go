package services

import (
	"context"
	"fmt"

	"car-scraper/models"
	"car-scraper/storage"
	"car-scraper/utils"
)

// IngestResult counts how a batch of listings landed in the store.
type IngestResult struct {
	New     int
	Updated int
}

// Ingestor upserts scraped listings into the record store and, when
// configured, mirrors them into a secondary sink.
type Ingestor struct {
	store  storage.ListingStore
	mirror storage.ListingMirror
	logger *utils.Logger
}

// NewIngestor creates an Ingestor. mirror may be nil.
func NewIngestor(store storage.ListingStore, mirror storage.ListingMirror, logger *utils.Logger) *Ingestor {
	return &Ingestor{store: store, mirror: mirror, logger: logger}
}

// Ingest upserts listings one at a time in order. A store error aborts the
// batch and is returned together with the counts so far; mirror errors are
// only logged.
func (i *Ingestor) Ingest(ctx context.Context, listings []*models.Listing) (IngestResult, error) {
	var res IngestResult
	mirrorFailures := 0

	for _, l := range listings {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("ingest: %w", err)
		}

		isNew, err := i.store.Upsert(l)
		if err != nil {
			return res, fmt.Errorf("ingest: upsert %s: %w", l.ID, err)
		}
		if isNew {
			res.New++
		} else {
			res.Updated++
		}

		if i.mirror != nil {
			if _, err := i.mirror.Upsert(ctx, l); err != nil {
				mirrorFailures++
				i.logger.Warn("[ingest] Mirror upsert failed for %s: %v", l.ID, err)
			}
		}
	}

	i.logger.Info("[ingest] %d new, %d updated", res.New, res.Updated)
	if mirrorFailures > 0 {
		i.logger.Warn("[ingest] %d listings were not mirrored", mirrorFailures)
	}
	return res, nil
}
