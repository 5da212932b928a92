package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/JosueCoro/mobicorp/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Market    MarketConfig    `mapstructure:"market"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CategoryConfig names one scrapeable catalog category.
type CategoryConfig struct {
	ID   int    `mapstructure:"id"`
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// ScraperConfig governs the price-range sweep against the target catalog.
type ScraperConfig struct {
	Source         string           `mapstructure:"source"`
	Categories     []CategoryConfig `mapstructure:"categories"`
	RequestTimeout time.Duration    `mapstructure:"request_timeout"`
	DefaultDelay   time.Duration    `mapstructure:"default_delay"`
	// FullSweepMax is the upper price bound used by the "full" sweep.
	// It is an operator-chosen parameter, not a detected catalog property.
	FullSweepMax int    `mapstructure:"full_sweep_max"`
	UserAgent    string `mapstructure:"user_agent"`
}

// MarketConfig selects the market sample sources used for comparisons.
type MarketConfig struct {
	SyntheticEnabled bool  `mapstructure:"synthetic_enabled"`
	ScrapedEnabled   bool  `mapstructure:"scraped_enabled"`
	Seed             int64 `mapstructure:"seed"`
}

// AlertingConfig defines the deviation threshold and alert routing.
type AlertingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// ThresholdPct is the relative deviation (in percent of the catalog
	// price) beyond which an alert is recorded. Reference value: 10.
	ThresholdPct float64        `mapstructure:"threshold_pct"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// SchedulerConfig governs the periodic sweep cadence of the run command.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	Category        int           `mapstructure:"category"`
	Delay           time.Duration `mapstructure:"delay"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MOBICORP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.Scraper.Categories) == 0 {
		cfg.Scraper.Categories = DefaultCategories()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultCategories returns the built-in catalog category map (ids 1-4).
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{ID: 1, Name: "Bar", URL: "https://www.livingroom.com.bo/product-category/bar/"},
		{ID: 2, Name: "Muebles de Oficina", URL: "https://www.livingroom.com.bo/product-category/muebles-de-oficina/"},
		{ID: 3, Name: "Mobiliario Educativo", URL: "https://www.livingroom.com.bo/product-category/mobiliario_educativo/"},
		{ID: 4, Name: "Sillas de Oficina", URL: "https://www.livingroom.com.bo/product-category/sillas-de-oficina/"},
	}
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mobicorp")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scraper.source", "livingroom.com.bo")
	v.SetDefault("scraper.request_timeout", "10s")
	v.SetDefault("scraper.default_delay", "300ms")
	v.SetDefault("scraper.full_sweep_max", 810)
	v.SetDefault("scraper.user_agent", "")

	v.SetDefault("market.synthetic_enabled", true)
	v.SetDefault("market.scraped_enabled", false)
	v.SetDefault("market.seed", int64(0))

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.threshold_pct", 10.0)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x6d6f6269))
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.category", 4)
	v.SetDefault("scheduler.delay", "300ms")

	v.SetDefault("export.max_rows", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scraper.FullSweepMax <= 0 {
		return fmt.Errorf("scraper.full_sweep_max must be greater than zero")
	}
	if c.Scraper.DefaultDelay < 0 {
		return fmt.Errorf("scraper.default_delay cannot be negative")
	}
	if !c.Market.SyntheticEnabled && !c.Market.ScrapedEnabled {
		return fmt.Errorf("at least one market source must be enabled")
	}
	if c.Alerting.ThresholdPct < 0 {
		return fmt.Errorf("alerting.threshold_pct cannot be negative")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxRows <= 0 {
		return fmt.Errorf("export.max_rows must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	seen := map[int]bool{}
	for _, cat := range c.Scraper.Categories {
		if cat.ID <= 0 || cat.URL == "" {
			return fmt.Errorf("scraper.categories entries need a positive id and a url")
		}
		if seen[cat.ID] {
			return fmt.Errorf("scraper.categories contains duplicate id %d", cat.ID)
		}
		seen[cat.ID] = true
	}
	return nil
}

// Category resolves a configured category by id.
func (c *Config) Category(id int) (CategoryConfig, bool) {
	for _, cat := range c.Scraper.Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return CategoryConfig{}, false
}

// ResolveMaxRows returns either the CLI override or config default.
func (c *Config) ResolveMaxRows(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxRows
}
