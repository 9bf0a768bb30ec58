// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the earn service.
type Config struct {
	ListenAddr  string // HTTP listen address
	DataFile    string // path of the ledger aggregate document
	CatalogDB   string // sqlite file for the article catalog
	CatalogSeed string // optional YAML article list loaded into the catalog at startup
	AdminToken  string // non-empty enables the admin endpoints

	RateCap        int           // max claims per agent per window
	RateWindow     time.Duration // trailing rate-limit window
	PersistTimeout time.Duration // bound on a single ledger write

	MaxLeaderboardLimit      int
	LeaderboardCountRejected bool // whether forfeited sats count toward displayed totals

	Debug bool
}

// fileConfig is the YAML shape; durations are given in seconds.
type fileConfig struct {
	ListenAddr               string `yaml:"listen_addr"`
	DataFile                 string `yaml:"data_file"`
	CatalogDB                string `yaml:"catalog_db"`
	CatalogSeed              string `yaml:"catalog_seed"`
	AdminToken               string `yaml:"admin_token"`
	RateCap                  int    `yaml:"rate_cap"`
	RateWindowSeconds        int    `yaml:"rate_window_seconds"`
	PersistTimeoutSeconds    int    `yaml:"persist_timeout_seconds"`
	MaxLeaderboardLimit      int    `yaml:"max_leaderboard_limit"`
	LeaderboardCountRejected *bool  `yaml:"leaderboard_count_rejected"`
	Debug                    *bool  `yaml:"debug"`
}

// Load builds the config: defaults, then the YAML file named by EARN_CONFIG
// (if set), then EARN_* environment overrides.
func Load() (Config, error) {
	c := Config{
		ListenAddr:          ":8090",
		DataFile:            "data/earn-claims.json",
		CatalogDB:           "data/earn-catalog.db",
		RateCap:             10,
		RateWindow:          time.Hour,
		PersistTimeout:      5 * time.Second,
		MaxLeaderboardLimit: 50,
	}

	if path := os.Getenv("EARN_CONFIG"); path != "" {
		if err := applyFile(&c, path); err != nil {
			return c, err
		}
	}

	c.ListenAddr = get("EARN_LISTEN_ADDR", c.ListenAddr)
	c.DataFile = get("EARN_DATA_FILE", c.DataFile)
	c.CatalogDB = get("EARN_CATALOG_DB", c.CatalogDB)
	c.CatalogSeed = get("EARN_CATALOG_SEED", c.CatalogSeed)
	c.AdminToken = get("EARN_ADMIN_TOKEN", c.AdminToken)
	if v, ok := getInt("EARN_RATE_CAP"); ok {
		c.RateCap = v
	}
	if v, ok := getInt("EARN_RATE_WINDOW_SECONDS"); ok {
		c.RateWindow = time.Duration(v) * time.Second
	}
	if v, ok := getInt("EARN_PERSIST_TIMEOUT_SECONDS"); ok {
		c.PersistTimeout = time.Duration(v) * time.Second
	}
	if v, ok := getInt("EARN_MAX_LEADERBOARD_LIMIT"); ok {
		c.MaxLeaderboardLimit = v
	}
	if v := os.Getenv("EARN_LEADERBOARD_COUNT_REJECTED"); v != "" {
		c.LeaderboardCountRejected = v == "true"
	}
	if v := os.Getenv("EARN_DEBUG"); v != "" {
		c.Debug = v == "true"
	}

	if c.RateCap < 1 {
		return c, fmt.Errorf("config: rate_cap must be >= 1, got %d", c.RateCap)
	}
	if c.RateWindow <= 0 {
		return c, fmt.Errorf("config: rate_window must be positive")
	}
	return c, nil
}

func applyFile(c *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config unmarshal: %w", err)
	}
	if f.ListenAddr != "" {
		c.ListenAddr = f.ListenAddr
	}
	if f.DataFile != "" {
		c.DataFile = f.DataFile
	}
	if f.CatalogDB != "" {
		c.CatalogDB = f.CatalogDB
	}
	if f.CatalogSeed != "" {
		c.CatalogSeed = f.CatalogSeed
	}
	if f.AdminToken != "" {
		c.AdminToken = f.AdminToken
	}
	if f.RateCap != 0 {
		c.RateCap = f.RateCap
	}
	if f.RateWindowSeconds != 0 {
		c.RateWindow = time.Duration(f.RateWindowSeconds) * time.Second
	}
	if f.PersistTimeoutSeconds != 0 {
		c.PersistTimeout = time.Duration(f.PersistTimeoutSeconds) * time.Second
	}
	if f.MaxLeaderboardLimit != 0 {
		c.MaxLeaderboardLimit = f.MaxLeaderboardLimit
	}
	if f.LeaderboardCountRejected != nil {
		c.LeaderboardCountRejected = *f.LeaderboardCountRejected
	}
	if f.Debug != nil {
		c.Debug = *f.Debug
	}
	return nil
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string) (int, bool) {
	v := os.Getenv(k)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
