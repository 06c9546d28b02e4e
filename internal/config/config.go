// Package config loads the crawl configuration file via Viper.
//
// The file is a single JSON object. The crawl keys (seed_urls, total_articles,
// headers, ...) are handed to crawler.Validate exactly as decoded; every other
// section is a runtime knob with a default and a VACANCY_ environment override.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/vacancy-crawler/internal/crawler"
	"github.com/JakeFAU/vacancy-crawler/internal/sink/postgres"
)

// ErrPathRequired is returned by Load when no config file is given.
var ErrPathRequired = errors.New("config path is required")

// Config is the fully loaded configuration of one crawl run.
type Config struct {
	// Crawl holds the validated crawl parameters.
	Crawl crawler.Configuration `mapstructure:"-"`

	Logging  LoggingConfig   `mapstructure:"logging"`
	Tracing  TracingConfig   `mapstructure:"tracing"`
	Limits   LimitsConfig    `mapstructure:"crawl"`
	Site     SiteConfig      `mapstructure:"site"`
	Fetch    FetchConfig     `mapstructure:"fetch"`
	Courtesy CourtesyConfig  `mapstructure:"courtesy"`
	Output   OutputConfig    `mapstructure:"output"`
	Archive  ArchiveConfig   `mapstructure:"archive"`
	GCS      GCSConfig       `mapstructure:"gcs"`
	Postgres postgres.Config `mapstructure:"postgres"`
	PubSub   PubSubConfig    `mapstructure:"pubsub"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Exporter string `mapstructure:"exporter"`
}

// LimitsConfig bounds the scroll loop and the crawl parameters.
type LimitsConfig struct {
	MaxScrolls  int           `mapstructure:"max_scrolls"`
	ScrollPause time.Duration `mapstructure:"scroll_pause"`
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
	MaxArticles int           `mapstructure:"max_articles"`
	TimeoutMin  int           `mapstructure:"timeout_min"`
	TimeoutMax  int           `mapstructure:"timeout_max"`
}

// SiteConfig describes the listing markup.
type SiteConfig struct {
	Origin       string `mapstructure:"origin"`
	CardSelector string `mapstructure:"card_selector"`
	DetailPrefix string `mapstructure:"detail_prefix"`
}

// FetchConfig tunes detail-page fetching.
type FetchConfig struct {
	Workers   int    `mapstructure:"workers"`
	UserAgent string `mapstructure:"user_agent"`
}

// CourtesyConfig paces requests to the target site.
type CourtesyConfig struct {
	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
	MaxRPS   float64       `mapstructure:"max_rps"`
	Burst    int           `mapstructure:"burst"`
}

// OutputConfig places the workbook.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Workbook string `mapstructure:"workbook"`
	Sheet    string `mapstructure:"sheet"`
	// Clean wipes Dir before the run.
	Clean bool `mapstructure:"clean"`
}

// ArchiveConfig controls raw HTML archiving of detail pages.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// GCSConfig uploads artifacts to a bucket when Bucket is set.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for run notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig exposes /metrics when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load reads and validates the JSON config file at path.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, ErrPathRequired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from the contents of a JSON config file.
func Parse(data []byte) (Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("VACANCY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	raw, err := crawlKeys(data)
	if err != nil {
		return Config{}, err
	}
	cfg.Crawl, err = crawler.Validate(raw, cfg.CrawlerLimits())
	if err != nil {
		return Config{}, fmt.Errorf("validate crawl config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// crawlKeys decodes the crawl keys untouched. Viper lowercases nested map
// keys, which would rewrite header names, so they bypass it.
func crawlKeys(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode crawl keys: %w", err)
	}
	raw := make(map[string]any, len(crawler.RawKeys()))
	for _, key := range crawler.RawKeys() {
		if value, ok := doc[key]; ok {
			raw[key] = value
		}
	}
	return raw, nil
}

func setDefaults(v *viper.Viper) {
	site := crawler.DefaultSite()

	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("crawl.max_scrolls", 200)
	v.SetDefault("crawl.scroll_pause", "2s")
	v.SetDefault("crawl.load_timeout", "45s")
	v.SetDefault("crawl.max_articles", 0)
	v.SetDefault("crawl.timeout_min", 0)
	v.SetDefault("crawl.timeout_max", 60)
	v.SetDefault("site.origin", site.Origin)
	v.SetDefault("site.card_selector", site.CardSelector)
	v.SetDefault("site.detail_prefix", site.DetailPrefix)
	v.SetDefault("fetch.workers", 1)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("courtesy.min_delay", "2s")
	v.SetDefault("courtesy.max_delay", "5s")
	v.SetDefault("courtesy.max_rps", 0)
	v.SetDefault("courtesy.burst", 1)
	v.SetDefault("output.dir", "tmp")
	v.SetDefault("output.workbook", "job_offers.xlsx")
	v.SetDefault("output.sheet", "Careerspace")
	v.SetDefault("output.clean", true)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.dir", "tmp/pages")
	v.SetDefault("gcs.bucket", "")
	v.SetDefault("gcs.prefix", "reports")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "vacancies")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.max_conn_lifetime", "30m")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("metrics.listen_addr", "")
}

// Validate enforces required values and reasonable limits on the runtime
// sections.
func (c Config) Validate() error {
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be > 0")
	}
	if c.Limits.MaxScrolls < 0 {
		return fmt.Errorf("crawl.max_scrolls must be >= 0")
	}
	if c.Courtesy.MinDelay < 0 || c.Courtesy.MaxDelay < 0 {
		return fmt.Errorf("courtesy delays must be >= 0")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	if c.Archive.Enabled && c.Archive.Dir == "" && c.GCS.Bucket == "" {
		return fmt.Errorf("archive.dir or gcs.bucket must be set when archiving is enabled")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.Topic == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic must be set together")
	}
	return nil
}

// CrawlerLimits converts the crawl section into validator limits.
func (c Config) CrawlerLimits() crawler.Limits {
	return crawler.Limits{
		MaxArticles: c.Limits.MaxArticles,
		TimeoutMin:  c.Limits.TimeoutMin,
		TimeoutMax:  c.Limits.TimeoutMax,
	}
}

// CrawlSite returns the listing markup description.
func (c Config) CrawlSite() crawler.Site {
	return crawler.Site{
		Origin:       c.Site.Origin,
		CardSelector: c.Site.CardSelector,
		DetailPrefix: c.Site.DetailPrefix,
	}
}

// RequestTimeout converts the validated crawl timeout to a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Crawl.TimeoutSeconds()) * time.Second
}
