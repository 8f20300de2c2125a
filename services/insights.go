package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"car-scraper/models"
	"car-scraper/utils"
)

const (
	separatorWidth     = 80
	descriptionPreview = 100
)

// InsightService summarises a scrape run for the operator.
type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

// NewInsightService creates an InsightService printing to out.
func NewInsightService(logger *utils.Logger, out io.Writer) *InsightService {
	return &InsightService{logger: logger, out: out}
}

// Generate computes statistics over the current run's listings only. Each
// statistic uses only the listings where that field is present.
func (s *InsightService) Generate(listings []*models.Listing, result IngestResult) *models.RunReport {
	report := &models.RunReport{
		TotalListings:   len(listings),
		NewListings:     result.New,
		UpdatedListings: result.Updated,
	}

	var priceTotal float64
	var mileageTotal int

	for _, l := range listings {
		if l.Price != nil {
			p := *l.Price
			if report.PricedListings == 0 || p < report.MinPrice {
				report.MinPrice = p
			}
			if report.PricedListings == 0 || p > report.MaxPrice {
				report.MaxPrice = p
				report.MostExpensive = l
			}
			priceTotal += p
			report.PricedListings++
		}
		if l.Mileage != nil {
			mileageTotal += *l.Mileage
			report.MileageListings++
		}
		if l.Year != nil {
			y := *l.Year
			if report.YearListings == 0 || y < report.MinYear {
				report.MinYear = y
			}
			if report.YearListings == 0 || y > report.MaxYear {
				report.MaxYear = y
			}
			report.YearListings++
		}
	}

	if report.PricedListings > 0 {
		report.AveragePrice = round2(priceTotal / float64(report.PricedListings))
	}
	if report.MileageListings > 0 {
		report.AverageMileage = mileageTotal / report.MileageListings
	}

	s.logger.Debug("[insights] %d priced, %d with mileage, %d with year",
		report.PricedListings, report.MileageListings, report.YearListings)
	return report
}

// PrintIngest renders how many listings the save step added and updated.
func (s *InsightService) PrintIngest(r *models.RunReport) {
	fmt.Fprintf(s.out, "New postings: %d\n", r.NewListings)
	fmt.Fprintf(s.out, "Updated postings: %d\n\n", r.UpdatedListings)
}

// Print renders the store total and summary statistics.
func (s *InsightService) Print(r *models.RunReport) {
	sep := strings.Repeat("=", separatorWidth)

	fmt.Fprintln(s.out, sep)
	fmt.Fprintf(s.out, "\nTotal postings in database: %d\n", r.StoredListings)
	fmt.Fprintln(s.out, sep)

	fmt.Fprintln(s.out, "\nSUMMARY STATISTICS:")
	fmt.Fprintln(s.out, sep)
	if r.PricedListings > 0 {
		fmt.Fprintf(s.out, "Average Price: $%s\n", money(r.AveragePrice))
		fmt.Fprintf(s.out, "Min Price: $%s\n", money(r.MinPrice))
		fmt.Fprintf(s.out, "Max Price: $%s\n", money(r.MaxPrice))
		if r.MostExpensive != nil {
			fmt.Fprintf(s.out, "Most Expensive: %s\n", r.MostExpensive)
		}
	} else {
		fmt.Fprintln(s.out, "No price data available")
	}
	if r.MileageListings > 0 {
		fmt.Fprintf(s.out, "Average Mileage: %s miles\n", humanize.Comma(int64(r.AverageMileage)))
	}
	if r.YearListings > 0 {
		fmt.Fprintf(s.out, "Year Range: %d - %d\n", r.MinYear, r.MaxYear)
	}
	fmt.Fprintln(s.out, sep)
}

// PrintListings renders one block per listing, numbered from 1.
func (s *InsightService) PrintListings(listings []*models.Listing) {
	sep := strings.Repeat("=", separatorWidth)
	fmt.Fprintln(s.out, sep)
	fmt.Fprintln(s.out, "SCRAPED LISTINGS:")
	fmt.Fprintln(s.out, sep)

	for i, l := range listings {
		fmt.Fprintf(s.out, "\n%d. %s\n", i+1, l.Title)
		fmt.Fprintf(s.out, "   URL: %s\n", l.SourceURL)
		if l.Year != nil {
			fmt.Fprintf(s.out, "   Year: %d\n", *l.Year)
		}
		if l.Make != "" {
			fmt.Fprintf(s.out, "   Make: %s\n", l.Make)
		}
		if l.Model != "" {
			fmt.Fprintf(s.out, "   Model: %s\n", l.Model)
		}
		if l.Price != nil {
			fmt.Fprintf(s.out, "   Price: $%s\n", money(*l.Price))
		}
		if l.Mileage != nil {
			fmt.Fprintf(s.out, "   Mileage: %s miles\n", humanize.Comma(int64(*l.Mileage)))
		}
		if l.Description != "" {
			fmt.Fprintf(s.out, "   Description: %s\n", truncate(l.Description, descriptionPreview))
		}
	}
	fmt.Fprintln(s.out)
}

// PrintNoListings explains the usual causes of an empty scrape.
func (s *InsightService) PrintNoListings(dumpPath string) {
	fmt.Fprintln(s.out, "\nNo listings found. This could mean:")
	fmt.Fprintln(s.out, "1. The website structure has changed")
	fmt.Fprintln(s.out, "2. The selectors need to be adjusted")
	fmt.Fprintln(s.out, "3. The page requires authentication or has anti-bot measures")
	if dumpPath != "" {
		fmt.Fprintf(s.out, "\nCheck '%s' for manual inspection.\n", dumpPath)
	}
}

func money(f float64) string {
	return humanize.FormatFloat("#,###.##", f)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

// truncate cuts s to max runes, appending "..." when it was longer.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
