package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	APIKey       string
	APISecret    string
	APIToken     string
	TokenURL     string
	SearchURL    string
	Center       string
	Country      string
	MaxItems     int
	Distance     int
	PropertyType string
	Operation    string
	PagesToFetch int

	DumpDir       string
	CSVOutputPath string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrency int
	RateLimitMs    int
	ChromeBin      string
	SizeFieldIndex int

	NeighborhoodColumn    string
	DistrictColumn        string
	NeighborhoodHashWidth int
	DistrictHashWidth     int

	LogLevel  string
	LogFormat string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		APIKey:       getEnv("IDEALISTA_API_KEY", ""),
		APISecret:    getEnv("IDEALISTA_API_SECRET", ""),
		APIToken:     getEnv("IDEALISTA_TOKEN", ""),
		TokenURL:     getEnv("IDEALISTA_TOKEN_URL", ""),
		SearchURL:    getEnv("IDEALISTA_SEARCH_URL", ""),
		Center:       getEnv("SEARCH_CENTER", "40.4167,-3.70325"),
		Country:      getEnv("SEARCH_COUNTRY", "es"),
		MaxItems:     getEnvInt("SEARCH_MAX_ITEMS", 50),
		Distance:     getEnvInt("SEARCH_DISTANCE", 1000),
		PropertyType: getEnv("SEARCH_PROPERTY_TYPE", "homes"),
		Operation:    getEnv("SEARCH_OPERATION", "sale"),
		PagesToFetch: getEnvInt("PAGES_TO_FETCH", 1),

		DumpDir:       getEnv("DUMP_DIR", "./data/raw"),
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/listings.csv"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "idealista"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "listings_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		SizeFieldIndex: getEnvInt("SIZE_FIELD_INDEX", 0),

		NeighborhoodColumn:    getEnv("NEIGHBORHOOD_COLUMN", "codbarrio"),
		DistrictColumn:        getEnv("DISTRICT_COLUMN", "coddistrit"),
		NeighborhoodHashWidth: getEnvInt("NEIGHBORHOOD_HASH_FEATURES", 6),
		DistrictHashWidth:     getEnvInt("DISTRICT_HASH_FEATURES", 3),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// Validate checks the numeric settings.
func (c *Config) Validate() error {
	if c.MaxItems < 1 {
		return fmt.Errorf("SEARCH_MAX_ITEMS must be at least 1")
	}
	if c.Distance < 1 {
		return fmt.Errorf("SEARCH_DISTANCE must be at least 1")
	}
	if c.PagesToFetch < 1 {
		return fmt.Errorf("PAGES_TO_FETCH must be at least 1")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be at least 1")
	}
	if c.RateLimitMs < 0 {
		return fmt.Errorf("RATE_LIMIT_MS must be non-negative")
	}
	if c.SizeFieldIndex < 0 {
		return fmt.Errorf("SIZE_FIELD_INDEX must be non-negative")
	}
	// The model schema reads codbar_5 and coddistrit_2.
	if c.NeighborhoodHashWidth < 5 {
		return fmt.Errorf("NEIGHBORHOOD_HASH_FEATURES must be at least 5")
	}
	if c.DistrictHashWidth < 2 {
		return fmt.Errorf("DISTRICT_HASH_FEATURES must be at least 2")
	}
	return nil
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
