package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/adharvest"
	"github.com/fwojciec/adharvest/bloom"
	"github.com/fwojciec/adharvest/crawl"
	"github.com/fwojciec/adharvest/github"
	"github.com/fwojciec/adharvest/postgres"
	"github.com/fwojciec/adharvest/redis"
	"github.com/spf13/viper"
)

// Config is the complete runtime configuration.
type Config struct {
	Crawl    CrawlConfig     `mapstructure:"crawl"`
	Scan     ScanConfig      `mapstructure:"scan"`
	Fetch    FetchConfig     `mapstructure:"fetch"`
	Browser  BrowserConfig   `mapstructure:"browser"`
	Storage  StorageConfig   `mapstructure:"storage"`
	Visited  VisitedConfig   `mapstructure:"visited"`
	Postgres postgres.Config `mapstructure:"postgres"`
	Mirror   MirrorConfig    `mapstructure:"mirror"`
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
}

// CrawlConfig describes the crawl space and pacing between units.
type CrawlConfig struct {
	Space     adharvest.CrawlSpace  `mapstructure:"space"`
	URL       adharvest.URLTemplate `mapstructure:"url"`
	MinDelay  time.Duration         `mapstructure:"min_delay"`
	MaxDelay  time.Duration         `mapstructure:"max_delay"`
	Isolation string                `mapstructure:"isolation"`
}

// ScanConfig controls one search-results page scan.
type ScanConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	NavigateTimeout time.Duration `mapstructure:"navigate_timeout"`
	ReadyTimeout    time.Duration `mapstructure:"ready_timeout"`
	ListingTimeout  time.Duration `mapstructure:"listing_timeout"`
	ReadySelector   string        `mapstructure:"ready_selector"`
	ListingSelector string        `mapstructure:"listing_selector"`
}

// FetchConfig controls listing page retrieval.
type FetchConfig struct {
	Transport   string        `mapstructure:"transport"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	DelayStep   time.Duration `mapstructure:"delay_step"`
	RateLimit   float64       `mapstructure:"rate_limit"`
}

// BrowserConfig controls the shared Chrome instance.
type BrowserConfig struct {
	Headless  bool   `mapstructure:"headless"`
	NoSandbox bool   `mapstructure:"no_sandbox"`
	Bin       string `mapstructure:"bin"`
	MaxPages  int64  `mapstructure:"max_pages"`
}

// StorageConfig locates the local record store and checkpoint.
type StorageConfig struct {
	Backend        string `mapstructure:"backend"`
	Dir            string `mapstructure:"dir"`
	RecordsFile    string `mapstructure:"records_file"`
	CheckpointFile string `mapstructure:"checkpoint_file"`
	SQLitePath     string `mapstructure:"sqlite_path"`
}

// VisitedConfig selects how already-seen listing links are tracked.
type VisitedConfig struct {
	Backend   string        `mapstructure:"backend"`
	Capacity  uint          `mapstructure:"capacity"`
	FPRate    float64       `mapstructure:"fp_rate"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// MirrorConfig enables the remote copy of the record store.
type MirrorConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	GitHub  github.Config `mapstructure:",squash"`
}

// ServerConfig enables the status server when Addr is set.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Development bool `mapstructure:"development"`
}

// Storage backends, visited-set backends, transports and isolation modes.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"

	TransportHTTP    = "http"
	TransportBrowser = "browser"

	IsolationProcess   = "process"
	IsolationGoroutine = "goroutine"
)

// LoadConfig builds a Config from defaults, an optional file, and
// ADHARVEST_* environment variables.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ADHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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
	space := adharvest.DefaultCrawlSpace()
	v.SetDefault("crawl.space.regions", space.Regions)
	v.SetDefault("crawl.space.categories.min", space.Categories.Min)
	v.SetDefault("crawl.space.categories.max", space.Categories.Max)
	v.SetDefault("crawl.space.pages.min", space.Pages.Min)
	v.SetDefault("crawl.space.pages.max", space.Pages.Max)
	v.SetDefault("crawl.url.base", adharvest.DefaultBaseURL)
	v.SetDefault("crawl.url.segment", adharvest.DefaultSegment)
	v.SetDefault("crawl.min_delay", crawl.DefaultMinDelay)
	v.SetDefault("crawl.max_delay", crawl.DefaultMaxDelay)
	v.SetDefault("crawl.isolation", IsolationProcess)

	v.SetDefault("scan.concurrency", crawl.DefaultScanConcurrency)
	v.SetDefault("scan.navigate_timeout", crawl.DefaultNavigateTimeout)
	v.SetDefault("scan.ready_timeout", crawl.DefaultReadyTimeout)
	v.SetDefault("scan.listing_timeout", crawl.DefaultListingTimeout)
	v.SetDefault("scan.ready_selector", adharvest.DefaultReadySelector)
	v.SetDefault("scan.listing_selector", adharvest.DefaultListingSelector)

	v.SetDefault("fetch.transport", TransportHTTP)
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_attempts", crawl.DefaultMaxAttempts)
	v.SetDefault("fetch.base_delay", crawl.DefaultBaseDelay)
	v.SetDefault("fetch.delay_step", crawl.DefaultDelayStep)
	v.SetDefault("fetch.rate_limit", 2.0)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.max_pages", 100)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.dir", ".")
	v.SetDefault("storage.records_file", "data.csv")
	v.SetDefault("storage.checkpoint_file", "state.json")
	v.SetDefault("storage.sqlite_path", "adharvest.db")

	v.SetDefault("visited.backend", BackendMemory)
	v.SetDefault("visited.capacity", bloom.DefaultCapacity)
	v.SetDefault("visited.fp_rate", bloom.DefaultFPRate)
	v.SetDefault("visited.redis_addr", "localhost:6379")
	v.SetDefault("visited.ttl", redis.DefaultTTL)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", postgres.DefaultTable)
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.max_conn_lifetime", time.Hour)

	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.owner", "")
	v.SetDefault("mirror.repo", "")
	v.SetDefault("mirror.path", "data.csv")
	v.SetDefault("mirror.branch", "main")
	v.SetDefault("mirror.token", "")

	v.SetDefault("server.addr", "")
	v.SetDefault("log.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := c.Crawl.Space.Validate(); err != nil {
		return err
	}
	if c.Crawl.URL.Base == "" || c.Crawl.URL.Segment == "" {
		return adharvest.Errorf(adharvest.EINVALID, "crawl.url.base and crawl.url.segment must be set")
	}
	if c.Crawl.MinDelay < 0 || c.Crawl.MaxDelay < c.Crawl.MinDelay {
		return adharvest.Errorf(adharvest.EINVALID, "crawl delays must satisfy 0 <= min_delay <= max_delay")
	}
	if c.Crawl.Isolation != IsolationProcess && c.Crawl.Isolation != IsolationGoroutine {
		return adharvest.Errorf(adharvest.EINVALID, "crawl.isolation must be %q or %q", IsolationProcess, IsolationGoroutine)
	}
	if c.Scan.Concurrency <= 0 {
		return adharvest.Errorf(adharvest.EINVALID, "scan.concurrency must be > 0")
	}
	if c.Scan.NavigateTimeout <= 0 || c.Scan.ReadyTimeout <= 0 || c.Scan.ListingTimeout <= 0 {
		return adharvest.Errorf(adharvest.EINVALID, "scan timeouts must be > 0")
	}
	if c.Fetch.Transport != TransportHTTP && c.Fetch.Transport != TransportBrowser {
		return adharvest.Errorf(adharvest.EINVALID, "fetch.transport must be %q or %q", TransportHTTP, TransportBrowser)
	}
	if c.Fetch.MaxAttempts <= 0 {
		return adharvest.Errorf(adharvest.EINVALID, "fetch.max_attempts must be > 0")
	}
	if c.Fetch.RateLimit < 0 {
		return adharvest.Errorf(adharvest.EINVALID, "fetch.rate_limit must be >= 0")
	}
	if c.Storage.Backend != BackendFile && c.Storage.Backend != BackendSQLite {
		return adharvest.Errorf(adharvest.EINVALID, "storage.backend must be %q or %q", BackendFile, BackendSQLite)
	}
	switch c.Visited.Backend {
	case BackendMemory:
		if c.Visited.Capacity == 0 || c.Visited.FPRate <= 0 || c.Visited.FPRate >= 1 {
			return adharvest.Errorf(adharvest.EINVALID, "visited.capacity must be > 0 and visited.fp_rate in (0, 1)")
		}
	case BackendRedis:
		if c.Visited.RedisAddr == "" {
			return adharvest.Errorf(adharvest.EINVALID, "visited.redis_addr must be set for the redis backend")
		}
	case BackendNone:
	default:
		return adharvest.Errorf(adharvest.EINVALID, "visited.backend must be %q, %q or %q", BackendMemory, BackendRedis, BackendNone)
	}
	if c.Mirror.Enabled {
		if err := c.Mirror.GitHub.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RecordsPath returns the local record file location.
func (c Config) RecordsPath() string {
	return filepath.Join(c.Storage.Dir, c.Storage.RecordsFile)
}

// CheckpointPath returns the checkpoint file location.
func (c Config) CheckpointPath() string {
	return filepath.Join(c.Storage.Dir, c.Storage.CheckpointFile)
}

// SQLitePath returns the database location.
func (c Config) SQLitePath() string {
	if filepath.IsAbs(c.Storage.SQLitePath) || c.Storage.SQLitePath == ":memory:" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.Storage.Dir, c.Storage.SQLitePath)
}
