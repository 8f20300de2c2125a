package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"car-scraper/scraper/responsemotors"
	"car-scraper/services"
	"car-scraper/storage"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrapes the inventory page, upserts every listing and prints a report.",
	Args:  cobra.NoArgs,
	RunE:  runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	sep := strings.Repeat("=", 80)

	fmt.Fprintln(out, sep)
	fmt.Fprintln(out, "Car Scraper - Response Motors")
	fmt.Fprintln(out, sep)

	store, err := openStore()
	if err != nil {
		return err
	}
	existing, err := store.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nDatabase: %s\n", store.Path())
	fmt.Fprintf(out, "Existing postings in database: %d\n", existing)

	var mirror storage.ListingMirror
	if cfg.PostgresMirror {
		pm, err := storage.NewPostgresMirror(ctx, cfg.DSN())
		if err != nil {
			logger.Warn("Postgres mirror unavailable, continuing with CSV only: %v", err)
		} else {
			defer pm.Close()
			mirror = pm
		}
	}

	source, err := responsemotors.NewSource(cfg, logger)
	if err != nil {
		return err
	}
	extractor, err := responsemotors.NewExtractor(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, sep)
	fmt.Fprintln(out, "Starting scrape...")
	fmt.Fprintln(out, sep)

	result, err := responsemotors.New(cfg, logger, source, extractor).Scrape(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, "\n\nScraping interrupted by user.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, sep)
	fmt.Fprintf(out, "\nScraping Complete!\nFound %d listings\n", len(result.Listings))
	fmt.Fprintln(out, sep)

	insights := services.NewInsightService(logger, out)
	if len(result.Listings) == 0 {
		insights.PrintNoListings(result.DumpPath)
		return nil
	}

	fmt.Fprintln(out, "\nSaving to database...")
	ingested, err := services.NewIngestor(store, mirror, logger).Ingest(ctx, result.Listings)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(out, "\n\nScraping interrupted by user after %d new and %d updated postings.\n",
			ingested.New, ingested.Updated)
		return nil
	}
	if err != nil {
		return err
	}

	report := insights.Generate(result.Listings, ingested)
	if report.StoredListings, err = store.Count(); err != nil {
		return err
	}

	insights.PrintIngest(report)
	insights.PrintListings(result.Listings)
	insights.Print(report)
	fmt.Fprintf(out, "Data saved to: %s\n", store.Path())
	return nil
}
