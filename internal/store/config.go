package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"signal-screener/internal/types"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// SourceConfig describes one headline source.
type SourceConfig struct {
	ID           string        `yaml:"id" validate:"required"`
	Kind         string        `yaml:"kind" validate:"oneof=reddit html finnhub_news"`
	URL          string        `yaml:"url" validate:"required,url"`
	Selector     string        `yaml:"selector"`
	MaxHeadlines int           `yaml:"max_headlines" validate:"gte=0"`
	MinInterval  time.Duration `yaml:"min_interval"`
}

type Config struct {
	Catalog struct {
		Path string `yaml:"path"`
	} `yaml:"catalog"`
	News struct {
		Concurrency int            `yaml:"concurrency" validate:"gte=1"`
		Timeout     time.Duration  `yaml:"timeout"`
		MinInterval time.Duration  `yaml:"min_interval"`
		CacheTTL    time.Duration  `yaml:"cache_ttl"`
		UserAgent   string         `yaml:"user_agent"`
		Sources     []SourceConfig `yaml:"sources" validate:"dive"`
	} `yaml:"news"`
	Quote struct {
		Provider     string           `yaml:"provider" validate:"oneof=FINNHUB YAHOO KITE STATIC"`
		BaseURL      string           `yaml:"base_url"`
		APIKeyEnv    string           `yaml:"api_key_env"`
		Resolution   types.Resolution `yaml:"resolution"`
		LookbackDays int              `yaml:"lookback_days" validate:"gte=1"`
		Exchange     string           `yaml:"exchange"`
		CacheDir     string           `yaml:"cache_dir"`
		CacheTTL     time.Duration    `yaml:"cache_ttl"`
	} `yaml:"quote"`
	Screener struct {
		Concurrency  int           `yaml:"concurrency" validate:"gte=1"`
		MinInterval  time.Duration `yaml:"min_interval"`
		FetchTimeout time.Duration `yaml:"fetch_timeout"`
	} `yaml:"screener"`
	Sectors      map[string][]string         `yaml:"sectors"`
	RiskProfiles map[string]types.Thresholds `yaml:"risk_profiles" validate:"dive"`
	Profile      struct {
		Sector        string `yaml:"investment_sector"`
		RiskTolerance string `yaml:"risk_tolerance"`
	} `yaml:"profile"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	ReportLog struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days" validate:"gte=0"`
	} `yaml:"reportlog"`
}

var validate = validator.New()

// Default returns the configuration used when no config file is present.
// Sources mirror the forums and news pages the screener was built around.
func Default() *Config {
	c := &Config{}
	c.Catalog.Path = "tickers.json"
	c.News.Sources = []SourceConfig{
		{ID: "wallstreetbets", Kind: "reddit", URL: "https://www.reddit.com/r/wallstreetbets/.json"},
		{ID: "stocks", Kind: "reddit", URL: "https://www.reddit.com/r/stocks/.json"},
		{ID: "stocks_picks", Kind: "reddit", URL: "https://www.reddit.com/r/Stocks_Picks/.json"},
		{ID: "robinhood_penny_stocks", Kind: "reddit", URL: "https://www.reddit.com/r/RobinHoodPennyStocks/.json"},
		{ID: "forbes", Kind: "html", URL: "https://www.forbes.com/markets/", Selector: "h3.HNChVRGc"},
		{ID: "yahoo", Kind: "html", URL: "https://finance.yahoo.com/topic/stock-market-news/", Selector: "a.mega-item-header-link"},
		{ID: "finnhub_general", Kind: "finnhub_news", URL: "https://finnhub.io/api/v1", MaxHeadlines: 5},
	}
	c.Sectors = map[string][]string{
		"Tech":       {"AAPL", "MSFT", "NVDA", "GOOGL", "META", "AMZN"},
		"Healthcare": {"JNJ", "UNH", "PFE", "MRK", "ABBV", "LLY"},
		"Energy":     {"XOM", "CVX", "COP", "SLB", "EOG", "OXY"},
		"Finance":    {"JPM", "BAC", "WFC", "GS", "MS", "C"},
	}
	c.RiskProfiles = map[string]types.Thresholds{
		"Low":    {StopLoss: 0.03, TakeProfit: 0.06},
		"Medium": {StopLoss: 0.05, TakeProfit: 0.10},
		"High":   {StopLoss: 0.10, TakeProfit: 0.20},
	}
	c.Profile.Sector = "Tech"
	c.Profile.RiskTolerance = "Medium"
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Catalog.Path == "" {
		c.Catalog.Path = "tickers.json"
	}
	if c.News.Concurrency == 0 {
		c.News.Concurrency = 1
	}
	if c.News.Timeout == 0 {
		c.News.Timeout = 30 * time.Second
	}
	if c.News.MinInterval == 0 {
		c.News.MinInterval = 2 * time.Second
	}
	if c.News.UserAgent == "" {
		c.News.UserAgent = browserUserAgent
	}
	if c.Quote.Provider == "" {
		c.Quote.Provider = "FINNHUB"
	}
	c.Quote.Provider = strings.ToUpper(c.Quote.Provider)
	if c.Quote.BaseURL == "" && c.Quote.Provider == "FINNHUB" {
		c.Quote.BaseURL = "https://finnhub.io/api/v1"
	}
	if c.Quote.APIKeyEnv == "" {
		c.Quote.APIKeyEnv = "FINNHUB_API_KEY"
	}
	if c.Quote.Resolution == "" {
		c.Quote.Resolution = types.ResolutionDay
	}
	if c.Quote.LookbackDays == 0 {
		c.Quote.LookbackDays = 30
	}
	if c.Quote.Exchange == "" {
		c.Quote.Exchange = "NSE"
	}
	if c.Quote.CacheTTL == 0 {
		c.Quote.CacheTTL = time.Hour
	}
	if c.Screener.Concurrency == 0 {
		c.Screener.Concurrency = 1
	}
	if c.Screener.MinInterval == 0 {
		c.Screener.MinInterval = time.Second
	}
	if c.Screener.FetchTimeout == 0 {
		c.Screener.FetchTimeout = 15 * time.Second
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "*/30 * * * *"
	}
	if c.ReportLog.Dir == "" {
		c.ReportLog.Dir = "logs"
	}
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !c.Quote.Resolution.Valid() {
		return fmt.Errorf("invalid quote.resolution '%s'", c.Quote.Resolution)
	}
	seen := make(map[string]bool, len(c.News.Sources))
	for _, s := range c.News.Sources {
		if seen[s.ID] {
			return fmt.Errorf("duplicate news source id '%s'", s.ID)
		}
		seen[s.ID] = true
		if s.Kind == "html" && strings.TrimSpace(s.Selector) == "" {
			return fmt.Errorf("news source '%s': html sources need a selector", s.ID)
		}
	}
	for name, tickers := range c.Sectors {
		if len(tickers) == 0 {
			return fmt.Errorf("sector '%s' has no tickers", name)
		}
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	// Explicit lists in the file replace the defaults instead of merging.
	c.News.Sources = nil
	c.Sectors = nil
	c.RiskProfiles = nil
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	d := Default()
	if c.News.Sources == nil {
		c.News.Sources = d.News.Sources
	}
	if c.Sectors == nil {
		c.Sectors = d.Sectors
	}
	if c.RiskProfiles == nil {
		c.RiskProfiles = d.RiskProfiles
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// LoadConfigOrDefault loads path, falling back to Default when the file does
// not exist. Any other error is returned.
func LoadConfigOrDefault(path string) (*Config, error) {
	c, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return c, err
}

// Source returns the source configuration with the given id.
func (c *Config) Source(id string) (SourceConfig, bool) {
	for _, s := range c.News.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// SourceIDs returns all configured source ids in declaration order.
func (c *Config) SourceIDs() []string {
	ids := make([]string, 0, len(c.News.Sources))
	for _, s := range c.News.Sources {
		ids = append(ids, s.ID)
	}
	return ids
}

// Universe returns the tickers of a sector. Sector names match
// case-insensitively.
func (c *Config) Universe(sector string) ([]string, error) {
	for name, tickers := range c.Sectors {
		if strings.EqualFold(name, sector) {
			return append([]string(nil), tickers...), nil
		}
	}
	return nil, fmt.Errorf("unknown sector '%s'", sector)
}

// RiskThresholds returns the default thresholds of a risk tolerance level.
func (c *Config) RiskThresholds(risk string) (types.Thresholds, error) {
	for name, th := range c.RiskProfiles {
		if strings.EqualFold(name, risk) {
			return th, nil
		}
	}
	return types.Thresholds{}, fmt.Errorf("unknown risk tolerance '%s'", risk)
}
