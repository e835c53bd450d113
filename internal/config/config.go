// Package config loads monitor configuration from a YAML file with
// environment-variable overrides.
//
// Precedence, lowest to highest: built-in defaults, the YAML file, then
// MTGMON_* environment variables. Validation failures are faults.Config and
// fatal at startup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/akkana/mtgmon/internal/faults"
)

// DefaultTableID is the DOM id of the Legistar calendar grid. Exposed as
// configuration so the scraper can be retargeted without code changes.
const DefaultTableID = "ctl00_ContentPlaceHolder1_gridCalendar_ctl00"

// Config holds all settings for the monitor.
type Config struct {
	// CalendarURL is the upstream Legistar calendar page.
	CalendarURL string `yaml:"calendar_url"`

	// FeedBaseURL is the absolute URL prefix under which OutputDir is
	// hosted. Always normalized to end with "/".
	FeedBaseURL string `yaml:"feed_base_url"`

	// OutputDir is where the RSS feed and per-meeting artifacts live.
	OutputDir string `yaml:"output_dir"`

	// Interval is the between-run sleep in serve mode.
	Interval time.Duration `yaml:"interval"`

	// LocalTimezone is the IANA zone of the upstream's date and time cells.
	LocalTimezone string `yaml:"local_timezone"`

	// TableID is the DOM anchor of the calendar table.
	TableID string `yaml:"table_id"`

	// PDFToHTML is the converter executable.
	PDFToHTML string `yaml:"pdftohtml"`

	// HTTPTimeout bounds each upstream GET.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// ConvertTimeout bounds one converter invocation (startup plus
	// conversion).
	ConvertTimeout time.Duration `yaml:"convert_timeout"`

	// OnlyFuture drops meetings already past at run time.
	OnlyFuture bool `yaml:"only_future"`
}

func defaults() *Config {
	return &Config{
		Interval:       6 * time.Hour,
		LocalTimezone:  "America/Denver",
		TableID:        DefaultTableID,
		PDFToHTML:      "pdftohtml",
		HTTPTimeout:    30 * time.Second,
		ConvertTimeout: 30 * time.Second,
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides, and validates. The returned error, if any, is a
// faults.Config error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, faults.Wrap(faults.Config, "read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, faults.Wrap(faults.Config, "parse config file", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MTGMON_CALENDAR_URL"); v != "" {
		c.CalendarURL = v
	}
	if v := os.Getenv("MTGMON_FEED_BASE_URL"); v != "" {
		c.FeedBaseURL = v
	}
	if v := os.Getenv("MTGMON_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("MTGMON_LOCAL_TIMEZONE"); v != "" {
		c.LocalTimezone = v
	}
	if v := os.Getenv("MTGMON_TABLE_ID"); v != "" {
		c.TableID = v
	}
	if v := os.Getenv("MTGMON_PDFTOHTML"); v != "" {
		c.PDFToHTML = v
	}
	if v := os.Getenv("MTGMON_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return faults.Wrap(faults.Config, "parse MTGMON_INTERVAL", err)
		}
		c.Interval = d
	}
	if v := os.Getenv("MTGMON_ONLY_FUTURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return faults.Wrap(faults.Config, "parse MTGMON_ONLY_FUTURE", err)
		}
		c.OnlyFuture = b
	}
	return nil
}

func (c *Config) validate() error {
	if c.CalendarURL == "" {
		return faults.New(faults.Config, "calendar_url is required")
	}
	if c.FeedBaseURL == "" {
		return faults.New(faults.Config, "feed_base_url is required")
	}
	if !strings.HasSuffix(c.FeedBaseURL, "/") {
		c.FeedBaseURL += "/"
	}
	if c.OutputDir == "" {
		return faults.New(faults.Config, "output_dir is required")
	}
	if c.Interval <= 0 {
		return faults.New(faults.Config, "interval must be positive")
	}
	if c.TableID == "" {
		return faults.New(faults.Config, "table_id is required")
	}
	if _, err := c.Location(); err != nil {
		return faults.Wrap(faults.Config, "load local_timezone", err)
	}
	return nil
}

// Location resolves the configured IANA zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.LocalTimezone)
}
