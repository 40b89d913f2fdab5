// Package config loads and validates QuickFlip configuration from YAML,
// with environment variable overrides for secrets and deployment knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all QuickFlip configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM configuration (vision extraction + listing composition)
	LLM LLMConfig `yaml:"llm"`

	// Market lookup configuration
	Market MarketConfig `yaml:"market"`

	// Pricing pipeline knobs
	Pricing PricingConfig `yaml:"pricing"`

	// Listing composition knobs
	Listing ListingConfig `yaml:"listing"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the Gemini clients.
type LLMConfig struct {
	APIKey      string `yaml:"api_key"`
	VisionModel string `yaml:"vision_model"`
	TextModel   string `yaml:"text_model"`
	BaseURL     string `yaml:"base_url"`
	Timeout     string `yaml:"timeout"`
	MaxRetries  int    `yaml:"max_retries"`
}

// MarketConfig configures the search-grounded market price lookup.
type MarketConfig struct {
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
	CacheTTL string `yaml:"cache_ttl"`
	// MinSamples is the minimum number of extracted comparable prices
	// required before a snapshot is considered usable.
	MinSamples int `yaml:"min_samples"`
}

// PricingConfig configures the adjustment pipeline.
type PricingConfig struct {
	// SanityAgeYears is the vehicle age past which a market average
	// far above the depreciation estimate is treated as implausible.
	SanityAgeYears int `yaml:"sanity_age_years"`
	// NegotiationMarginPercent is the half-width of the negotiation band.
	NegotiationMarginPercent float64 `yaml:"negotiation_margin_percent"`
	// RegionPatterns are lowercase substrings matched against the
	// seller's location; a match enables the regional pricing stage.
	RegionPatterns []string `yaml:"region_patterns"`
}

// ListingConfig configures listing composition.
type ListingConfig struct {
	Platforms []string `yaml:"platforms"`
	Timeout   string   `yaml:"timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Debug      bool            `yaml:"debug"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "quickflip",
		Version: "1.0.0",

		LLM: LLMConfig{
			VisionModel: "gemini-2.5-flash",
			TextModel:   "gemini-2.5-flash",
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			Timeout:     "60s",
			MaxRetries:  3,
		},

		Market: MarketConfig{
			Model:      "gemini-2.5-flash",
			Timeout:    "45s",
			CacheTTL:   "15m",
			MinSamples: 2,
		},

		Pricing: PricingConfig{
			SanityAgeYears:           10,
			NegotiationMarginPercent: 5,
			RegionPatterns: []string{
				"tx", "texas", "austin", "dallas", "houston", "san antonio",
			},
		},

		Listing: ListingConfig{
			Platforms: []string{"facebook", "craigslist", "offerup"},
			Timeout:   "45s",
		},

		Logging: LoggingConfig{
			Debug: false,
			Level: "info",
			Dir:   "logs",
		},
	}
}

// Load loads configuration from a YAML file. A missing file returns the
// defaults, so a bare GEMINI_API_KEY is enough to run.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("QUICKFLIP_VISION_MODEL"); model != "" {
		c.LLM.VisionModel = model
	}
	if model := os.Getenv("QUICKFLIP_TEXT_MODEL"); model != "" {
		c.LLM.TextModel = model
	}
	if model := os.Getenv("QUICKFLIP_MARKET_MODEL"); model != "" {
		c.Market.Model = model
	}
	if dir := os.Getenv("QUICKFLIP_LOG_DIR"); dir != "" {
		c.Logging.Dir = dir
	}
	if os.Getenv("QUICKFLIP_DEBUG") == "1" {
		c.Logging.Debug = true
	}
}

// Validate checks that the configuration is usable for a live run.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set GEMINI_API_KEY)")
	}
	if len(c.Listing.Platforms) == 0 {
		return fmt.Errorf("listing.platforms must list at least one platform")
	}
	return nil
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetMarketTimeout returns the market lookup timeout as a duration.
func (c *Config) GetMarketTimeout() time.Duration {
	d, err := time.ParseDuration(c.Market.Timeout)
	if err != nil {
		return 45 * time.Second
	}
	return d
}

// GetMarketCacheTTL returns the market cache TTL as a duration.
func (c *Config) GetMarketCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Market.CacheTTL)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// GetListingTimeout returns the listing composition timeout as a duration.
func (c *Config) GetListingTimeout() time.Duration {
	d, err := time.ParseDuration(c.Listing.Timeout)
	if err != nil {
		return 45 * time.Second
	}
	return d
}
