package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/maltedev/amazon-product-agent/internal/scraper"
)

// Config is loaded once at startup and never mutated afterwards.
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Scraper   ScraperConfig   `mapstructure:",squash"`
	Providers ProviderConfig  `mapstructure:",squash"`
	Batch     BatchConfig     `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	RateLimit RateLimitConfig `mapstructure:",squash"`
}

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	APIKey      string   `mapstructure:"backend_api_key"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type RateLimitConfig struct {
	Limit         int `mapstructure:"rate_limit"`
	WindowSeconds int `mapstructure:"rate_limit_window"`
}

type ScraperConfig struct {
	RequestTimeout     int           `mapstructure:"request_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryDelay         int           `mapstructure:"retry_delay"`
	DirectDelayMin     time.Duration `mapstructure:"direct_delay_min"`
	DirectDelayMax     time.Duration `mapstructure:"direct_delay_max"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	OutboundRPS        int           `mapstructure:"outbound_rps"`

	// Split on "|", the strings themselves contain commas.
	UserAgentList string   `mapstructure:"user_agents"`
	UserAgents    []string `mapstructure:"-"`
}

type ProviderConfig struct {
	RainforestKey string `mapstructure:"rainforest_api_key"`
	RainforestURL string `mapstructure:"rainforest_url"`
	ScraperAPIKey string `mapstructure:"scraperapi_key"`
	ScraperAPIURL string `mapstructure:"scraperapi_url"`
	RapidAPIKey   string `mapstructure:"rapidapi_key"`
	RapidAPIURL   string `mapstructure:"rapidapi_url"`
}

type BatchConfig struct {
	Size     int           `mapstructure:"batch_size"`
	DelayMin time.Duration `mapstructure:"batch_delay_min"`
	DelayMax time.Duration `mapstructure:"batch_delay_max"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"redis_addr"`
	Password string `mapstructure:"redis_password"`
	DB       int    `mapstructure:"redis_db"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"db_host"`
	Port     int    `mapstructure:"db_port"`
	User     string `mapstructure:"db_user"`
	Password string `mapstructure:"db_password"`
	Name     string `mapstructure:"db_name"`
	MaxConns int32  `mapstructure:"db_max_conns"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"log_level"`
	Format string `mapstructure:"log_format"`
}

// Load reads an optional .env file, then environment variables over the
// defaults below.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	for _, key := range v.AllKeys() {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Server.CORSOrigins = trimAll(cfg.Server.CORSOrigins)
	cfg.Scraper.UserAgents = trimAll(strings.Split(cfg.Scraper.UserAgentList, "|"))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8000)
	v.SetDefault("backend_api_key", "changeme")
	v.SetDefault("cors_origins", "*")

	v.SetDefault("rate_limit", 10)
	v.SetDefault("rate_limit_window", 60)

	v.SetDefault("request_timeout", 30)
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_delay", 1)
	v.SetDefault("direct_delay_min", "1s")
	v.SetDefault("direct_delay_max", "3s")
	v.SetDefault("insecure_skip_verify", true)
	v.SetDefault("outbound_rps", 0)
	v.SetDefault("user_agents", strings.Join(DefaultUserAgents(), "|"))

	v.SetDefault("rainforest_api_key", "demo")
	v.SetDefault("rainforest_url", scraper.DefaultRainforestURL)
	v.SetDefault("scraperapi_key", "demo")
	v.SetDefault("scraperapi_url", scraper.DefaultScraperAPIURL)
	v.SetDefault("rapidapi_key", "demo")
	v.SetDefault("rapidapi_url", scraper.DefaultRapidAPIURL)

	v.SetDefault("batch_size", 3)
	v.SetDefault("batch_delay_min", "2s")
	v.SetDefault("batch_delay_max", "5s")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("db_host", "")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "product_agent")
	v.SetDefault("db_max_conns", 10)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.RateLimit.Limit < 1 {
		return fmt.Errorf("RATE_LIMIT must be at least 1")
	}
	if c.RateLimit.WindowSeconds < 1 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1")
	}
	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1")
	}
	if c.Scraper.RequestTimeout < 1 {
		return fmt.Errorf("REQUEST_TIMEOUT must be at least 1")
	}
	if c.Batch.Size < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1")
	}
	if c.Scraper.DirectDelayMin > c.Scraper.DirectDelayMax {
		return fmt.Errorf("DIRECT_DELAY_MIN cannot be greater than DIRECT_DELAY_MAX")
	}
	if c.Batch.DelayMin > c.Batch.DelayMax {
		return fmt.Errorf("BATCH_DELAY_MIN cannot be greater than BATCH_DELAY_MAX")
	}
	if len(c.Scraper.UserAgents) == 0 {
		return fmt.Errorf("USER_AGENTS must not be empty")
	}
	return nil
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func (c *Config) DatabaseEnabled() bool {
	return c.Database.Host != ""
}

// AgentOptions maps the loaded values onto the strategy chain.
func (c *Config) AgentOptions() scraper.Options {
	return scraper.Options{
		Fetch: scraper.FetcherOptions{
			Timeout:            time.Duration(c.Scraper.RequestTimeout) * time.Second,
			MaxRetries:         c.Scraper.MaxRetries,
			RetryDelay:         time.Duration(c.Scraper.RetryDelay) * time.Second,
			InsecureSkipVerify: c.Scraper.InsecureSkipVerify,
		},
		OutboundRPS:    c.Scraper.OutboundRPS,
		RainforestURL:  c.Providers.RainforestURL,
		RainforestKey:  c.Providers.RainforestKey,
		ScraperAPIURL:  c.Providers.ScraperAPIURL,
		ScraperAPIKey:  c.Providers.ScraperAPIKey,
		RapidAPIURL:    c.Providers.RapidAPIURL,
		RapidAPIKey:    c.Providers.RapidAPIKey,
		UserAgents:     c.Scraper.UserAgents,
		DirectDelayMin: c.Scraper.DirectDelayMin,
		DirectDelayMax: c.Scraper.DirectDelayMax,
	}
}

func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
