package services

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"car-scraper/models"
	"car-scraper/utils"
)

func sampleListing(url, title string, year *int, price *float64, mileage *int) *models.Listing {
	l := models.NewListing(url, title)
	l.Year = year
	l.Price = price
	l.Mileage = mileage
	return l
}

func sampleListings() []*models.Listing {
	return []*models.Listing{
		sampleListing("https://responsemotors.com/inventory/1", "2019 Honda Civic LX",
			models.IntPtr(2019), models.FloatPtr(25999), models.IntPtr(42000)),
		sampleListing("https://responsemotors.com/inventory/2", "2015 Ford Focus SE",
			models.IntPtr(2015), models.FloatPtr(9500.5), models.IntPtr(88001)),
		sampleListing("https://responsemotors.com/inventory/3", "2022 Tesla Model 3",
			models.IntPtr(2022), models.FloatPtr(38250), nil),
		sampleListing("https://responsemotors.com/inventory/4", "Vehicle 4",
			nil, nil, nil),
		sampleListing("https://responsemotors.com/inventory/5", "2010 Toyota Corolla",
			models.IntPtr(2010), models.FloatPtr(0), models.IntPtr(0)),
	}
}

func newTestInsights(out io.Writer) *InsightService {
	return NewInsightService(utils.NewLoggerWithLevel(io.Discard, "error"), out)
}

func TestInsightCounts(t *testing.T) {
	r := newTestInsights(io.Discard).Generate(sampleListings(), IngestResult{New: 3, Updated: 2})
	if r.TotalListings != 5 {
		t.Errorf("TotalListings: got %d, want 5", r.TotalListings)
	}
	if r.NewListings != 3 || r.UpdatedListings != 2 {
		t.Errorf("New/Updated: got %d/%d, want 3/2", r.NewListings, r.UpdatedListings)
	}
}

func TestInsightPricesIgnoreAbsentValues(t *testing.T) {
	r := newTestInsights(io.Discard).Generate(sampleListings(), IngestResult{})
	if r.PricedListings != 4 {
		t.Errorf("PricedListings: got %d, want 4", r.PricedListings)
	}
	// (25999 + 9500.5 + 38250 + 0) / 4
	wantAvg := 18437.38
	if r.AveragePrice != wantAvg {
		t.Errorf("AveragePrice: got %.2f, want %.2f", r.AveragePrice, wantAvg)
	}
	if r.MinPrice != 0 {
		t.Errorf("MinPrice: got %.2f, want 0", r.MinPrice)
	}
	if r.MaxPrice != 38250 {
		t.Errorf("MaxPrice: got %.2f, want 38250", r.MaxPrice)
	}
}

func TestInsightMostExpensive(t *testing.T) {
	r := newTestInsights(io.Discard).Generate(sampleListings(), IngestResult{})
	if r.MostExpensive == nil {
		t.Fatal("MostExpensive should not be nil")
	}
	if r.MostExpensive.Title != "2022 Tesla Model 3" {
		t.Errorf("MostExpensive: got %q", r.MostExpensive.Title)
	}
}

func TestInsightMileageAndYears(t *testing.T) {
	r := newTestInsights(io.Discard).Generate(sampleListings(), IngestResult{})
	if r.MileageListings != 3 {
		t.Errorf("MileageListings: got %d, want 3", r.MileageListings)
	}
	if r.AverageMileage != 43333 {
		t.Errorf("AverageMileage: got %d, want 43333", r.AverageMileage)
	}
	if r.MinYear != 2010 || r.MaxYear != 2022 {
		t.Errorf("Year range: got %d-%d, want 2010-2022", r.MinYear, r.MaxYear)
	}
}

func TestInsightEmptyInput(t *testing.T) {
	r := newTestInsights(io.Discard).Generate(nil, IngestResult{})
	if r.TotalListings != 0 || r.PricedListings != 0 || r.MostExpensive != nil {
		t.Errorf("expected an empty report, got %+v", r)
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	svc := newTestInsights(&buf)
	r := svc.Generate(sampleListings(), IngestResult{New: 3, Updated: 2})
	r.StoredListings = 12
	svc.Print(r)

	out := buf.String()
	if strings.Contains(out, "New postings") {
		t.Errorf("ingest counts belong to PrintIngest\n%s", out)
	}
	for _, want := range []string{
		"Total postings in database: 12",
		"Average Price: $18,437.38",
		"Min Price: $0.00",
		"Max Price: $38,250.00",
		"Most Expensive: 2022 Unknown Unknown - $38,250 - ??? miles",
		"Average Mileage: 43,333 miles",
		"Year Range: 2010 - 2022",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestPrintIngest(t *testing.T) {
	var buf bytes.Buffer
	svc := newTestInsights(&buf)
	svc.PrintIngest(svc.Generate(sampleListings(), IngestResult{New: 3, Updated: 2}))

	want := "New postings: 3\nUpdated postings: 2\n\n"
	if got := buf.String(); got != want {
		t.Errorf("PrintIngest: got %q, want %q", got, want)
	}
}

func TestPrintReportWithoutPrices(t *testing.T) {
	var buf bytes.Buffer
	svc := newTestInsights(&buf)
	svc.Print(svc.Generate([]*models.Listing{sampleListings()[3]}, IngestResult{New: 1}))

	out := buf.String()
	if !strings.Contains(out, "No price data available") {
		t.Errorf("expected no-price notice\n%s", out)
	}
	if strings.Contains(out, "Year Range") || strings.Contains(out, "Average Mileage") {
		t.Errorf("absent stats should be omitted\n%s", out)
	}
}

func TestPrintListings(t *testing.T) {
	l := sampleListings()[0]
	l.Make, l.Model = "Honda", "Civic LX"
	l.Description = strings.Repeat("a", 120)

	var buf bytes.Buffer
	newTestInsights(&buf).PrintListings([]*models.Listing{l, sampleListings()[3]})

	out := buf.String()
	for _, want := range []string{
		"1. 2019 Honda Civic LX",
		"   URL: https://responsemotors.com/inventory/1",
		"   Year: 2019",
		"   Make: Honda",
		"   Model: Civic LX",
		"   Price: $25,999.00",
		"   Mileage: 42,000 miles",
		"   Description: " + strings.Repeat("a", 100) + "...\n",
		"2. Vehicle 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing output missing %q\n%s", want, out)
		}
	}
}

func TestPrintNoListings(t *testing.T) {
	var buf bytes.Buffer
	newTestInsights(&buf).PrintNoListings("page_source.html")
	if !strings.Contains(buf.String(), "Check 'page_source.html'") {
		t.Errorf("missing dump hint\n%s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"longer than ten", 10, "longer tha..."},
		{"ééééé", 3, "ééé..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
