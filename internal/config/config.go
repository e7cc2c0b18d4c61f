// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"attractions-crawler/internal/scraper"
)

// ErrMissingStartURL is returned when no listing URL was configured.
var ErrMissingStartURL = errors.New("start URL is required (set SCRAPING_URL)")

// Driver names accepted by crawler.driver.
const (
	DriverChrome = "chrome"
	DriverStatic = "static"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	StartURL  string            `mapstructure:"start_url"`
	DB        DBConfig          `mapstructure:"db"`
	Images    ImagesConfig      `mapstructure:"images"`
	Crawler   CrawlerConfig     `mapstructure:"crawler"`
	Selectors scraper.Selectors `mapstructure:"selectors"`
	Server    ServerConfig      `mapstructure:"server"`
	Logging   LoggingConfig     `mapstructure:"logging"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
}

// DBConfig locates the SQLite database file.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// ImagesConfig controls image downloads.
type ImagesConfig struct {
	Dir     string        `mapstructure:"dir"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CrawlerConfig governs the pagination loop and the browser driver.
type CrawlerConfig struct {
	MaxPages    int           `mapstructure:"max_pages"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	Driver      string        `mapstructure:"driver"`
	Headless    bool          `mapstructure:"headless"`
	UserAgent   string        `mapstructure:"user_agent"`
	ChromePath  string        `mapstructure:"chrome_path"`
}

// ServerConfig controls the read API.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig sets the listen address for crawl metrics; empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"url":          "start_url",
	"db":           "db.path",
	"images":       "images.dir",
	"pages":        "crawler.max_pages",
	"driver":       "crawler.driver",
	"headless":     "crawler.headless",
	"wait-timeout": "crawler.wait_timeout",
	"settle-delay": "crawler.settle_delay",
	"port":         "server.port",
	"dev":          "logging.development",
	"metrics-addr": "metrics.addr",
}

// Load builds a Config from defaults, an optional file, the environment and
// any flags in flags that match known keys.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ATTRACTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.BindEnv("start_url", "SCRAPING_URL", "ATTRACTIONS_START_URL"); err != nil {
		return Config{}, fmt.Errorf("bind start url env: %w", err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("start_url", "")
	v.SetDefault("db.path", "./Storage/attractions.db")
	v.SetDefault("images.dir", "./Storage/downloaded_images")
	v.SetDefault("images.timeout", "10s")
	v.SetDefault("crawler.max_pages", 10)
	v.SetDefault("crawler.wait_timeout", "10s")
	v.SetDefault("crawler.settle_delay", "1s")
	v.SetDefault("crawler.driver", DriverChrome)
	v.SetDefault("crawler.headless", true)
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")
	v.SetDefault("crawler.chrome_path", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.addr", "")

	sel := scraper.DefaultSelectors()
	v.SetDefault("selectors.listing_item", sel.ListingItem)
	v.SetDefault("selectors.title_link", sel.TitleLink)
	v.SetDefault("selectors.location", sel.Location)
	v.SetDefault("selectors.thumbnail", sel.Thumbnail)
	v.SetDefault("selectors.next_page", sel.NextPage)
	v.SetDefault("selectors.detail_ready", sel.DetailReady)
	v.SetDefault("selectors.street_address", sel.StreetAddress)
	v.SetDefault("selectors.city_state_zip", sel.CityStateZip)
	v.SetDefault("selectors.phone", sel.Phone)
	v.SetDefault("selectors.description", sel.Description)
	v.SetDefault("selectors.slide_image", sel.SlideImage)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("db.path must be set")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.WaitTimeout <= 0 {
		return fmt.Errorf("crawler.wait_timeout must be > 0")
	}
	if c.Crawler.SettleDelay < 0 {
		return fmt.Errorf("crawler.settle_delay must be >= 0")
	}
	if c.Images.Timeout <= 0 {
		return fmt.Errorf("images.timeout must be > 0")
	}
	switch c.Crawler.Driver {
	case DriverChrome, DriverStatic:
	default:
		return fmt.Errorf("crawler.driver must be %q or %q, got %q", DriverChrome, DriverStatic, c.Crawler.Driver)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// ValidateCrawl additionally requires a usable start URL.
func (c Config) ValidateCrawl() error {
	if strings.TrimSpace(c.StartURL) == "" {
		return ErrMissingStartURL
	}
	u, err := url.Parse(c.StartURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("start URL %q must be an absolute http(s) URL", c.StartURL)
	}
	if strings.TrimSpace(c.Images.Dir) == "" {
		return fmt.Errorf("images.dir must be set")
	}
	return nil
}

// ScraperConfig maps the crawl settings onto the scraper package.
func (c Config) ScraperConfig() scraper.Config {
	return scraper.Config{
		MaxPages:    c.Crawler.MaxPages,
		WaitTimeout: c.Crawler.WaitTimeout,
		SettleDelay: c.Crawler.SettleDelay,
		Selectors:   c.Selectors,
	}
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}
