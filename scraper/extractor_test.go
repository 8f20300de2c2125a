package scraper

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"car-scraper/models"
	"car-scraper/utils"
)

const inventoryURL = "https://responsemotors.com/inventory/"

const inventoryHTML = `<html><head><title>Inventory</title></head><body>
<div class="vehicle-card">
  <a href="/inventory/2019-honda-civic-lx/"><img src="/img/civic.jpg"></a>
  <h3>2019 Honda Civic LX</h3>
  <span class="price">$25,999.00</span>
  <div class="mileage">42,315 miles</div>
  <p class="description">  One owner,
     clean history. </p>
  <div class="condition">Used</div>
  <div class="vin">VIN: 2hgfc2f59kh000000</div>
  <ul class="specs"><li>Engine: 2.0L I4</li><li>Exterior Color: Blue</li><li>no label</li></ul>
</div>
<div class="vehicle-card">
  <span class="price">Call for price</span>
</div>
<div class="vehicle-card">
  <a href="javascript:void(0)">details</a>
  <h2>2099 Concept Car</h2>
</div>
<div class="vehicle-card" data-title="2021 Ford F-150 XLT" data-price="41000">
  <a href="https://ResponseMotors.com:443/inventory/f150">view</a>
</div>
</body></html>`

func newTestExtractor(t *testing.T, dumpPath string) *Extractor {
	t.Helper()
	e, err := NewExtractor(Options{
		InventoryURL:  inventoryURL,
		DebugDumpPath: dumpPath,
		Locators:      DefaultLocators(),
	}, utils.NewLoggerWithLevel(io.Discard, "error"))
	require.NoError(t, err)
	return e
}

func mustDocument(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := NewDocument(html)
	require.NoError(t, err)
	return doc
}

func TestExtractFullCard(t *testing.T) {
	e := newTestExtractor(t, "")
	res := e.Extract(mustDocument(t, inventoryHTML))

	require.Equal(t, ".vehicle-card", res.Selector)
	require.Equal(t, 4, res.Elements)
	require.Equal(t, 1, res.Skipped)
	require.Len(t, res.Listings, 3)

	l := res.Listings[0]
	require.Equal(t, "https://responsemotors.com/inventory/2019-honda-civic-lx/", l.SourceURL)
	require.Equal(t, models.ListingID(l.SourceURL), l.ID)
	require.Equal(t, "2019 Honda Civic LX", l.Title)
	require.Equal(t, 2019, *l.Year)
	require.Equal(t, "Honda", l.Make)
	require.Equal(t, "Civic LX", l.Model)
	require.Equal(t, 25999.0, *l.Price)
	require.Equal(t, 42315, *l.Mileage)
	require.Equal(t, "One owner, clean history.", l.Description)
	require.Equal(t, "https://responsemotors.com/img/civic.jpg", l.ThumbnailURL)
	require.Equal(t, []string{l.ThumbnailURL}, l.ImageURLs)
	require.Equal(t, "used", l.Condition)
	require.Equal(t, "2HGFC2F59KH000000", l.VIN)
	require.Equal(t, models.Features{"engine": "2.0L I4", "exterior_color": "Blue"}, l.Features)
	require.Equal(t, models.DefaultPlatform, l.SourcePlatform)
	require.Equal(t, models.DefaultCurrency, l.Currency)
}

func TestExtractFallbacks(t *testing.T) {
	e := newTestExtractor(t, "")
	res := e.Extract(mustDocument(t, inventoryHTML))

	bare := res.Listings[1]
	require.Equal(t, "Vehicle 2", bare.Title)
	require.Equal(t, inventoryURL+"#listing-1", bare.SourceURL)
	require.Nil(t, bare.Price)
	require.Nil(t, bare.Year)
	require.Equal(t, "Vehicle", bare.Make)
	require.Equal(t, "2", bare.Model)
	require.NotNil(t, bare.ImageURLs)
	require.Empty(t, bare.ImageURLs)
	require.Empty(t, bare.ThumbnailURL)
	require.Empty(t, bare.Description)

	attrs := res.Listings[2]
	require.Equal(t, "2021 Ford F-150 XLT", attrs.Title)
	require.Equal(t, "https://responsemotors.com/inventory/f150", attrs.SourceURL)
	require.Equal(t, 41000.0, *attrs.Price)
	require.Equal(t, "Ford", attrs.Make)
	require.Equal(t, "F-150 XLT", attrs.Model)
}

func TestExtractIsDeterministic(t *testing.T) {
	e := newTestExtractor(t, "")
	first := e.Extract(mustDocument(t, inventoryHTML))
	second := e.Extract(mustDocument(t, inventoryHTML))

	require.Equal(t, len(first.Listings), len(second.Listings))
	for i := range first.Listings {
		require.Equal(t, first.Listings[i].ID, second.Listings[i].ID)
	}
}

func TestExtractNoContainersDumpsPage(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "debug", "page_source.html")
	e := newTestExtractor(t, dump)

	html := `<html><head><title>Blocked</title></head><body><p>Access denied</p></body></html>`
	res := e.Extract(mustDocument(t, html))

	require.Empty(t, res.Listings)
	require.Empty(t, res.Selector)
	require.Equal(t, dump, res.DumpPath)

	saved, err := os.ReadFile(dump)
	require.NoError(t, err)
	require.Equal(t, html, string(saved))
}

func TestExtractUsesFirstMatchingContainer(t *testing.T) {
	e := newTestExtractor(t, "")
	html := `<div class="listing-item"><h4>2015 Audi A4</h4></div>
<article class="vehicle"><h4>2016 BMW 328i</h4></article>
<article class="vehicle"><h4>2017 Kia Soul</h4></article>`

	res := e.Extract(mustDocument(t, html))
	require.Equal(t, "article.vehicle", res.Selector)
	require.Len(t, res.Listings, 2)
	require.Equal(t, "2016 BMW 328i", res.Listings[0].Title)
}

func TestLoadLocatorsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("containers:\n  - div.srp-card\ntitle:\n  - .srp-title\n"), 0644))

	loc, err := LoadLocators(path)
	require.NoError(t, err)
	require.Equal(t, []string{"div.srp-card"}, loc.Containers)
	require.Equal(t, []string{".srp-title"}, loc.Title)
	require.Equal(t, DefaultLocators().Price, loc.Price)
}

func TestLoadLocatorsMissingFile(t *testing.T) {
	loc, err := LoadLocators(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultLocators(), loc)
}

func TestLoadLocatorsRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("contaners:\n  - div\n"), 0644))

	_, err := LoadLocators(path)
	require.Error(t, err)
}

func TestResolveURL(t *testing.T) {
	e := newTestExtractor(t, "")
	tests := []struct {
		ref    string
		want   string
		wantOK bool
	}{
		{"/inventory/a", "https://responsemotors.com/inventory/a", true},
		{"b?x=1", "https://responsemotors.com/inventory/b?x=1", true},
		{"HTTPS://ResponseMotors.com/inventory/../c", "https://responsemotors.com/c", true},
		{"javascript:void(0)", "", false},
		{"#top", "", false},
		{"  ", "", false},
	}
	for _, tt := range tests {
		got, ok := ResolveURL(e.base, tt.ref)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ResolveURL(%q) = %q, %v; want %q, %v", tt.ref, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFirstOfRanksStrategies(t *testing.T) {
	doc := mustDocument(t, `<div class="card"><span class="b">second</span><span class="a"> </span></div>`)
	el := doc.FindAll(".card")[0]

	got, ok := FirstOf(el, TextAt(".missing"), TextAt(".a"), TextAt(".b"))
	require.True(t, ok)
	require.Equal(t, "second", got)

	_, ok = FirstOf(el, TextAt(".missing"))
	require.False(t, ok)
}
