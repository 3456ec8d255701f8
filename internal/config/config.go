// Package config loads the YAML configuration document and overlays it with
// environment variables, following the precedence the composition root has
// always used: file first, environment wins.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cybersmurf/realestate-aggregator/internal/env"
)

// Database holds Postgres connection settings.
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MinConns int    `yaml:"min_conns"`
	MaxConns int    `yaml:"max_conns"`
}

// DSN builds a libpq-style connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		d.Host, d.Port, d.Name, d.User, d.Password)
}

// Redis holds optional Redis connection settings. Addr == "" disables Redis
// entirely and every component that would use it falls back to an
// in-process equivalent.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ScraperTuning is one per-source entry of the scrapers stanza. It is parsed
// into Config.Scrapers, but no adapter reads it.
type ScraperTuning struct {
	Enabled                bool   `yaml:"enabled"`
	DetailFetchConcurrency int    `yaml:"detail_fetch_concurrency"`
	FetchDetails           bool   `yaml:"fetch_details"`
	RegionID               int    `yaml:"region_id"`
	DistrictID             int    `yaml:"district_id"`
}

// Scheduler holds cron scheduling settings.
type Scheduler struct {
	Enabled    bool   `yaml:"enabled"`
	DailyCron  string `yaml:"daily_cron"`
	WeeklyCron string `yaml:"weekly_cron"`
	Timezone   string `yaml:"timezone"`
}

// QualityFilters mirrors the policy document's quality_filters stanza.
type QualityFilters struct {
	RequirePhotos       bool `yaml:"require_photos"`
	MinPhotos           int  `yaml:"min_photos"`
	RequirePrice        bool `yaml:"require_price"`
	RequireLocation     bool `yaml:"require_location"`
	RequireDescription  bool `yaml:"require_description"`
	MinDescriptionLength int `yaml:"min_description_length"`
}

// PropertyTypeFilter is one per-property-type stanza in search_filters.
type PropertyTypeFilter struct {
	Enabled    bool     `yaml:"enabled"`
	OfferTypes []string `yaml:"offer_types"`
	MinPrice   *float64 `yaml:"min_price"`
	MaxPrice   *float64 `yaml:"max_price"`
}

// SearchFilters mirrors the policy document's search_filters stanza.
type SearchFilters struct {
	TargetDistricts []string                      `yaml:"target_districts"`
	PropertyTypes   map[string]PropertyTypeFilter `yaml:"property_types"`
}

// Logging controls the structured logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full composition-root configuration document.
type Config struct {
	Database       Database                 `yaml:"database"`
	Redis          Redis                    `yaml:"redis"`
	Scrapers       map[string]ScraperTuning `yaml:"scrapers"`
	Scheduler      Scheduler                `yaml:"scheduler"`
	SearchFilters  SearchFilters            `yaml:"search_filters"`
	QualityFilters QualityFilters           `yaml:"quality_filters"`
	Logging        Logging                  `yaml:"logging"`
	HTTPAddr       string                   `yaml:"http_addr"`
}

// Default returns the configuration used when no document is present:
// daily incremental at 03:00, weekly full rescan at 02:00 Sunday, both in
// Europe/Prague, and the default policy filter from spec.md §4.2.
func Default() Config {
	maxHouse := 8_500_000.0
	maxLand := 2_000_000.0
	return Config{
		Database: Database{Host: "localhost", Port: 5432, Name: "realestate", User: "postgres", MinConns: 5, MaxConns: 20},
		Scheduler: Scheduler{
			Enabled:    true,
			DailyCron:  "0 3 * * *",
			WeeklyCron: "0 2 * * 0",
			Timezone:   "Europe/Prague",
		},
		QualityFilters: QualityFilters{
			RequirePhotos:   true,
			MinPhotos:       1,
			RequirePrice:    true,
			RequireLocation: true,
		},
		SearchFilters: SearchFilters{
			TargetDistricts: []string{"Znojmo"},
			PropertyTypes: map[string]PropertyTypeFilter{
				"House": {Enabled: true, OfferTypes: []string{"Sale"}, MaxPrice: &maxHouse},
				"Land":  {Enabled: true, OfferTypes: []string{"Sale"}, MaxPrice: &maxLand},
			},
		},
		Logging:  Logging{Level: "info", Format: "console"},
		HTTPAddr: ":8080",
	}
}

// Load reads the YAML document at path (if non-empty and present) on top of
// Default(), then overlays environment variable overrides. A missing path
// is not an error — the defaults plus env apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Database.Host = env.Get("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = env.GetInt("DB_PORT", cfg.Database.Port)
	cfg.Database.Name = env.Get("DB_NAME", cfg.Database.Name)
	cfg.Database.User = env.Get("DB_USER", cfg.Database.User)
	cfg.Database.Password = env.Get("DB_PASSWORD", cfg.Database.Password)

	cfg.Redis.Addr = env.Get("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = env.Get("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = env.GetInt("REDIS_DB", cfg.Redis.DB)

	cfg.Logging.Level = env.Get("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = env.Get("LOG_FORMAT", cfg.Logging.Format)

	cfg.HTTPAddr = env.Get("HTTP_ADDR", cfg.HTTPAddr)

	if tz := env.Get("SCHEDULER_TIMEZONE", ""); tz != "" {
		cfg.Scheduler.Timezone = tz
	}
}

// Location resolves the scheduler's configured timezone, using Europe/Prague
// only when none is configured. An unknown timezone name (or a missing tzdata
// entry) is returned as an error for the caller to report at startup.
func (c Config) Location() (*time.Location, error) {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = "Europe/Prague"
	}
	return time.LoadLocation(tz)
}
