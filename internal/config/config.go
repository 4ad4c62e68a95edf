// Package config loads environment-driven configuration for both the board
// client and the dev store server. A .env file is honored when present.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Static tuning constants. These are fixed configuration, not runtime
// negotiated.
const (
	// PageSize is the number of items fetched per list page.
	PageSize = 20
	// NotificationTimeout is how long a transient notice stays visible.
	NotificationTimeout = 5000 * time.Millisecond
	// DebounceInterval delays search-as-you-type until input settles.
	DebounceInterval = 300 * time.Millisecond
	// FeedReconnectBaseDelay is multiplied by the attempt number to pace
	// change-feed reconnection.
	FeedReconnectBaseDelay = 1000 * time.Millisecond
	// FeedMaxReconnectAttempts bounds reconnection before giving up.
	FeedMaxReconnectAttempts = 5
)

// Config holds everything read from the environment.
type Config struct {
	// Client side.
	StoreURL    string // base URL of the data store, e.g. http://localhost:8080
	AccessToken string // bearer token for the current session, may be empty

	// Dev store side.
	HTTPAddr  string
	DBPath    string
	JWTSecret string
}

// Load reads the environment, after loading .env if one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		StoreURL:    getenv("STORE_URL", "http://localhost:8080"),
		AccessToken: getenv("STORE_ACCESS_TOKEN", ""),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DBPath:      getenv("DB_PATH", "data/doubtwala.db"),
		JWTSecret:   getenv("JWT_SECRET", ""),
	}
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
