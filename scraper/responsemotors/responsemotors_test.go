package responsemotors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"car-scraper/config"
	"car-scraper/utils"
)

const inventoryPage = `<html><body>
<div class="vehicle-card">
  <a href="/inventory/2020-toyota-camry-se/">details</a>
  <h3>2020 Toyota Camry SE</h3>
  <span class="price">$21,500</span>
  <div class="mileage">30,000 mi</div>
</div>
<div class="vehicle-card">
  <a href="/inventory/2018-mazda-cx-5/">details</a>
  <h3>2018 Mazda CX-5 Touring</h3>
</div>
</body></html>`

type fakeSource struct {
	pages []string
	errs  []error
	calls int
}

func (f *fakeSource) Fetch(ctx context.Context, pageURL string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.pages) {
		return f.pages[i], nil
	}
	return f.pages[len(f.pages)-1], nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		InventoryURL:  "https://responsemotors.com/inventory/",
		FetchMode:     config.FetchModeStatic,
		UserAgent:     "car-scraper-test",
		PageTimeout:   5 * time.Second,
		MaxRetries:    3,
		DebugDumpPath: filepath.Join(t.TempDir(), "page_source.html"),
		SelectorsFile: filepath.Join(t.TempDir(), "missing.yaml"),
	}
}

func newTestScraper(t *testing.T, cfg *config.Config, src Source) *Scraper {
	t.Helper()
	logger := utils.NewLoggerWithLevel(io.Discard, "error")
	ext, err := NewExtractor(cfg, logger)
	require.NoError(t, err)
	s := New(cfg, logger, src, ext)
	s.retry.BaseDelay = time.Millisecond
	return s
}

func TestScrapeExtractsListings(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{pages: []string{inventoryPage}}

	res, err := newTestScraper(t, cfg, src).Scrape(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)
	require.Equal(t, ".vehicle-card", res.Selector)
	require.Len(t, res.Listings, 2)
	require.Equal(t, "2020 Toyota Camry SE", res.Listings[0].Title)
	require.Equal(t, 21500.0, *res.Listings[0].Price)
	require.Equal(t, 30000, *res.Listings[0].Mileage)
	require.Equal(t, "https://responsemotors.com/inventory/2018-mazda-cx-5/", res.Listings[1].SourceURL)
	require.Nil(t, res.Listings[1].Price)
}

func TestScrapeRetriesFetchFailures(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{
		pages: []string{"", "", inventoryPage},
		errs:  []error{errors.New("net::ERR_CONNECTION_RESET"), errors.New("timeout")},
	}

	res, err := newTestScraper(t, cfg, src).Scrape(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, src.calls)
	require.Len(t, res.Listings, 2)
}

func TestScrapeGivesUpAfterMaxRetries(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRetries = 2
	boom := errors.New("browser crashed")
	src := &fakeSource{errs: []error{boom, boom, boom}}

	_, err := newTestScraper(t, cfg, src).Scrape(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, src.calls)
}

func TestScrapeEmptyPageDumpsSource(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{pages: []string{"<html><body><p>Maintenance</p></body></html>"}}

	res, err := newTestScraper(t, cfg, src).Scrape(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Listings)
	require.Equal(t, cfg.DebugDumpPath, res.DumpPath)
	require.FileExists(t, cfg.DebugDumpPath)
}

func TestNewSourceByMode(t *testing.T) {
	logger := utils.NewLoggerWithLevel(io.Discard, "error")
	tests := []struct {
		mode    string
		want    string
		wantErr bool
	}{
		{mode: "", want: "*responsemotors.BrowserSource"},
		{mode: config.FetchModeBrowser, want: "*responsemotors.BrowserSource"},
		{mode: config.FetchModeStatic, want: "*responsemotors.StaticSource"},
		{mode: "carrier-pigeon", wantErr: true},
	}
	for _, tt := range tests {
		src, err := NewSource(&config.Config{FetchMode: tt.mode}, logger)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewSource(%q): expected error", tt.mode)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewSource(%q): unexpected error %v", tt.mode, err)
			continue
		}
		if got := fmt.Sprintf("%T", src); got != tt.want {
			t.Errorf("NewSource(%q) = %s, want %s", tt.mode, got, tt.want)
		}
	}
}

func TestStaticSourceFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, inventoryPage)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	src := NewStaticSource(cfg, utils.NewLoggerWithLevel(io.Discard, "error"))

	for i := 0; i < 2; i++ {
		html, err := src.Fetch(context.Background(), srv.URL+"/inventory/")
		require.NoError(t, err)
		require.Contains(t, html, "2020 Toyota Camry SE")
	}
	require.Equal(t, "car-scraper-test", gotUA)
}

func TestStaticSourceFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewStaticSource(testConfig(t), utils.NewLoggerWithLevel(io.Discard, "error"))
	_, err := src.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

func TestStaticSourceFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewStaticSource(testConfig(t), utils.NewLoggerWithLevel(io.Discard, "error"))
	_, err := src.Fetch(ctx, "http://127.0.0.1:1/")
	require.ErrorIs(t, err, context.Canceled)
}

func TestFindChromeBinaryPrefersExplicitPath(t *testing.T) {
	if got := findChromeBinary("/opt/custom/chrome"); got != "/opt/custom/chrome" {
		t.Errorf("findChromeBinary: got %q", got)
	}
}
