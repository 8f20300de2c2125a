package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Fetch modes for the inventory page.
const (
	FetchModeBrowser = "browser"
	FetchModeStatic  = "static"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	InventoryURL   string
	SourcePlatform string
	Currency       string

	CSVStorePath   string
	DebugDumpPath  string
	ScreenshotPath string
	SelectorsFile  string

	FetchMode   string
	Headless    bool
	ChromeBin   string
	UserAgent   string
	PageTimeout time.Duration
	SettleDelay time.Duration
	MaxRetries  int

	LogLevel string
	APIAddr  string

	PostgresMirror   bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		InventoryURL:   getEnv("INVENTORY_URL", "https://responsemotors.com/inventory/"),
		SourcePlatform: getEnv("SOURCE_PLATFORM", "responsemotors"),
		Currency:       strings.ToUpper(getEnv("CURRENCY", "USD")),

		CSVStorePath:   getEnv("CSV_STORE_PATH", "car_postings.csv"),
		DebugDumpPath:  getEnv("DEBUG_DUMP_PATH", "page_source.html"),
		ScreenshotPath: getEnv("SCREENSHOT_PATH", "error_screenshot.png"),
		SelectorsFile:  getEnv("SELECTORS_FILE", "selectors.yaml"),

		FetchMode:   strings.ToLower(getEnv("FETCH_MODE", FetchModeBrowser)),
		Headless:    getEnvBool("HEADLESS", true),
		ChromeBin:   getEnv("CHROME_BIN", ""),
		UserAgent:   getEnv("USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		PageTimeout: getEnvDuration("PAGE_TIMEOUT", 30*time.Second),
		SettleDelay: getEnvDuration("SETTLE_DELAY", 3*time.Second),
		MaxRetries:  getEnvInt("MAX_RETRIES", 3),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		APIAddr:  getEnv("API_ADDR", ":8080"),

		PostgresMirror:   getEnvBool("POSTGRES_MIRROR", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "car_listings"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}
