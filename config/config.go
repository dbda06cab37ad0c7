package config

import (
	"os"
	"strconv"
	"time"

	"sjsage522/promoradar/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Scan configuration
	ScanInterval time.Duration
	FetchTimeout time.Duration
	ScanDelay    time.Duration
	BrandsFile   string

	// Extraction tuning
	MaxPromoLength    int
	MinCandidateScore int
	HexGuardLength    int
	LimitedTimeDays   int

	// Persistence
	HistoryBackend  string
	HistoryFile     string
	SnapshotFile    string
	PersistRetries  int
	RedisHistoryKey string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int
	PublishEnabled       bool

	// Memcache configuration
	MemcacheAddr string
	BlockTime    time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	scanInterval := getEnvInt("SCAN_INTERVAL_SECONDS", 300)
	fetchTimeout := getEnvInt("FETCH_TIMEOUT_SECONDS", 20)
	scanDelay := getEnvInt("SCAN_DELAY_MS", 2000)
	blockTime := getEnvInt("BLOCK_SECONDS", 500)

	return &Config{
		ScanInterval:         time.Duration(scanInterval) * time.Second,
		FetchTimeout:         time.Duration(fetchTimeout) * time.Second,
		ScanDelay:            time.Duration(scanDelay) * time.Millisecond,
		BrandsFile:           getEnv("BRANDS_FILE", "config/brands.json5"),
		MaxPromoLength:       getEnvInt("MAX_PROMO_LENGTH", 200),
		MinCandidateScore:    getEnvInt("MIN_CANDIDATE_SCORE", 10),
		HexGuardLength:       getEnvInt("HEX_GUARD_LENGTH", 6),
		LimitedTimeDays:      getEnvInt("LIMITED_TIME_DAYS", 3),
		HistoryBackend:       getEnv("HISTORY_BACKEND", "file"),
		HistoryFile:          getEnv("HISTORY_FILE", "data/deal_history.json"),
		SnapshotFile:         getEnv("SNAPSHOT_FILE", "data/promo_data.json"),
		PersistRetries:       getEnvInt("PERSIST_RETRIES", 3),
		RedisHistoryKey:      getEnv("REDIS_HISTORY_KEY", "promoradar:history"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "promoradar:cycles"),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		PublishEnabled:       getEnvBool("PUBLISH_ENABLED", false),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		BlockTime:            time.Duration(blockTime) * time.Second,
		Environment:          getEnv("PROMORADAR_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the scanner cannot run with
func (c *Config) Validate() error {
	if c.ScanInterval <= 0 {
		return errors.NewConfiguration("SCAN_INTERVAL_SECONDS must be positive", nil)
	}
	if c.FetchTimeout <= 0 {
		return errors.NewConfiguration("FETCH_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.ScanDelay < 0 {
		return errors.NewConfiguration("SCAN_DELAY_MS must not be negative", nil)
	}
	if c.MaxPromoLength < 20 {
		return errors.NewConfiguration("MAX_PROMO_LENGTH must be at least 20", nil)
	}
	if c.HexGuardLength < 0 || c.LimitedTimeDays < 0 || c.PersistRetries < 0 {
		return errors.NewConfiguration("HEX_GUARD_LENGTH, LIMITED_TIME_DAYS and PERSIST_RETRIES must not be negative", nil)
	}
	switch c.HistoryBackend {
	case "file":
		if c.HistoryFile == "" {
			return errors.NewConfiguration("HISTORY_FILE is required for the file backend", nil)
		}
	case "redis":
		if c.RedisAddr == "" {
			return errors.NewConfiguration("REDIS_ADDR is required for the redis backend", nil)
		}
	default:
		return errors.NewConfiguration("HISTORY_BACKEND must be file or redis, got "+c.HistoryBackend, nil)
	}
	if c.SnapshotFile == "" {
		return errors.NewConfiguration("SNAPSHOT_FILE is required", nil)
	}
	if c.PublishEnabled && c.RedisAddr == "" {
		return errors.NewConfiguration("REDIS_ADDR is required when PUBLISH_ENABLED is set", nil)
	}
	return nil
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
