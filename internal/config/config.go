package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "CIVILAI_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	newsAPIKeyEnv     = "NEWSAPI_KEY"
	guardianKeyEnv    = "GUARDIAN_API_KEY"
	nytimesKeyEnv     = "NYTIMES_API_KEY"
	serpAPIKeyEnv     = "SERPAPI_KEY"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	chatGPTEndpointEn = "CHATGPT_ENDPOINT"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// ErrMissingCredential is returned by Validate when a required key is absent.
var ErrMissingCredential = errors.New("missing credential")

// ErrExportFormat is returned for export paths that are neither .xlsx nor .csv.
var ErrExportFormat = errors.New("export path must end in .xlsx or .csv")

// Full-text policies.
const (
	FullTextNever    = "never"
	FullTextFallback = "fallback"
	FullTextAlways   = "always"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Keywords      KeywordsConfig     `yaml:"keywords"`
	APIKeys       APIKeysConfig      `yaml:"apiKeys"`
	Sources       []SourceConfig     `yaml:"sources"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the store connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// PipelineConfig drives a collection run.
type PipelineConfig struct {
	TargetCount        int           `yaml:"targetCount"`
	LookbackDays       int           `yaml:"lookbackDays"`
	MinBodyLength      int           `yaml:"minBodyLength"`
	Concurrency        int           `yaml:"concurrency"`
	FullText           string        `yaml:"fullText"`
	DisableTopicFilter bool          `yaml:"disableTopicFilter"`
	Language           string        `yaml:"language"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
	ExtractTimeout     time.Duration `yaml:"extractTimeout"`
	UserAgent          string        `yaml:"userAgent"`
	DryRun             bool          `yaml:"-"`
	ExportPath         string        `yaml:"-"`
	OnlySources        []string      `yaml:"-"`
}

// KeywordsConfig overrides the built-in keyword sets.
type KeywordsConfig struct {
	AI []string `yaml:"ai"`
	CE []string `yaml:"ce"`
}

// APIKeysConfig holds credentials of the search providers.
type APIKeysConfig struct {
	NewsAPI  string `yaml:"newsapi"`
	Guardian string `yaml:"guardian"`
	NYTimes  string `yaml:"nytimes"`
	SerpAPI  string `yaml:"serpapi"`
}

// SourceConfig describes a single source with its scanner strategy.
// Enabled is tri-state: unset means "run when its credential is present".
type SourceConfig struct {
	Name         string            `yaml:"name"`
	Scanner      string            `yaml:"scanner"`
	Enabled      *bool             `yaml:"enabled"`
	URL          string            `yaml:"url"`
	Queries      []string          `yaml:"queries"`
	Domains      []string          `yaml:"domains"`
	Categories   []CategoryConfig  `yaml:"categories"`
	Options      map[string]string `yaml:"options"`
	MaxPages     int               `yaml:"maxPages"`
	RateInterval time.Duration     `yaml:"rateInterval"`
}

// CategoryConfig holds the concrete endpoints to crawl (feed URLs, arXiv listings).
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ClassifierConfig tunes the LLM prompts. Timeout bounds one LLM call and
// falls back to chatgpt.timeout when unset.
type ClassifierConfig struct {
	MaxContentChars      int           `yaml:"maxContentChars"`
	AbstractContentChars int           `yaml:"abstractContentChars"`
	Timeout              time.Duration `yaml:"timeout"`
}

// CallTimeout returns the per-call LLM timeout.
func (c Config) CallTimeout() time.Duration {
	if c.Classifier.Timeout > 0 {
		return c.Classifier.Timeout
	}
	return c.ChatGPT.Timeout
}

// SchedulerConfig defines when the collector should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	MetricsAddr    string         `yaml:"metricsAddr"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads .env, the YAML file (path argument, else CIVILAI_CONFIG) and applies
// environment overrides. A missing .env is fine; an unreadable config file is not.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	cfg.fillDefaults()

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{databaseDSNEnv, &c.Database.DSN},
		{databaseDriverEnv, &c.Database.Driver},
		{newsAPIKeyEnv, &c.APIKeys.NewsAPI},
		{guardianKeyEnv, &c.APIKeys.Guardian},
		{nytimesKeyEnv, &c.APIKeys.NYTimes},
		{serpAPIKeyEnv, &c.APIKeys.SerpAPI},
		{chatGPTAPIKeyEnv, &c.ChatGPT.APIKey},
		{chatGPTModelEnv, &c.ChatGPT.Model},
		{chatGPTEndpointEn, &c.ChatGPT.Endpoint},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{logLevelEnv, &c.Logging.Level},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// fillDefaults restores zero values a partial YAML file may have left behind.
func (c *Config) fillDefaults() {
	def := defaultConfig()
	if len(c.Sources) == 0 {
		c.Sources = def.Sources
	}
	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
	}
	if c.Pipeline.FullText == "" {
		c.Pipeline.FullText = def.Pipeline.FullText
	}
	if c.Pipeline.RequestTimeout <= 0 {
		c.Pipeline.RequestTimeout = def.Pipeline.RequestTimeout
	}
	if c.Pipeline.ExtractTimeout <= 0 {
		c.Pipeline.ExtractTimeout = def.Pipeline.ExtractTimeout
	}
	if c.Classifier.MaxContentChars <= 0 {
		c.Classifier.MaxContentChars = def.Classifier.MaxContentChars
	}
	if c.Classifier.AbstractContentChars <= 0 {
		c.Classifier.AbstractContentChars = def.Classifier.AbstractContentChars
	}
	if c.ChatGPT.Timeout <= 0 {
		c.ChatGPT.Timeout = def.ChatGPT.Timeout
	}
}

// APIKey returns the credential a scanner kind needs, and whether it needs one.
func (c Config) APIKey(scanner string) (string, bool) {
	switch scanner {
	case "newsapi":
		return c.APIKeys.NewsAPI, true
	case "guardian":
		return c.APIKeys.Guardian, true
	case "nytimes":
		return c.APIKeys.NYTimes, true
	case "serpapi":
		return c.APIKeys.SerpAPI, true
	default:
		return "", false
	}
}

// ActiveSources returns the sources that run in this process.
// Explicitly enabled sources always run; unset ones run when their key is present.
func (c Config) ActiveSources() []SourceConfig {
	only := map[string]bool{}
	for _, name := range c.Pipeline.OnlySources {
		only[name] = true
	}

	var out []SourceConfig
	for _, src := range c.Sources {
		if len(only) > 0 && !only[src.Name] {
			continue
		}
		if src.Enabled != nil {
			if *src.Enabled {
				out = append(out, src)
			}
			continue
		}
		if key, needs := c.APIKey(src.Scanner); needs && key == "" {
			continue
		}
		out = append(out, src)
	}
	return out
}

// Needs lists the capabilities a command requires.
type Needs struct {
	Sources bool
	LLM     bool
	Store   bool
}

// ValidateExportPath accepts an empty path or one with an .xlsx or .csv extension.
func ValidateExportPath(path string) error {
	if path == "" {
		return nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".csv":
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrExportFormat, path)
	}
}

// Validate checks settings and credentials for the requested capabilities.
func (c Config) Validate(needs Needs) error {
	var errs []error

	if needs.Store {
		switch c.Database.Driver {
		case DriverPostgres, DriverSQLite:
		default:
			errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
		}
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("database.dsn: %w", ErrMissingCredential))
		}
	}

	if needs.Sources {
		p := c.Pipeline
		if p.TargetCount <= 0 {
			errs = append(errs, fmt.Errorf("pipeline.targetCount must be positive"))
		}
		if p.Concurrency <= 0 {
			errs = append(errs, fmt.Errorf("pipeline.concurrency must be positive"))
		}
		if p.LookbackDays <= 0 {
			errs = append(errs, fmt.Errorf("pipeline.lookbackDays must be positive"))
		}
		switch p.FullText {
		case FullTextNever, FullTextFallback, FullTextAlways:
		default:
			errs = append(errs, fmt.Errorf("pipeline.fullText %q is not one of never|fallback|always", p.FullText))
		}
		if err := ValidateExportPath(p.ExportPath); err != nil {
			errs = append(errs, err)
		}

		known := map[string]bool{}
		for _, src := range c.Sources {
			known[src.Name] = true
		}
		for _, name := range p.OnlySources {
			if !known[name] {
				errs = append(errs, fmt.Errorf("source %q is not configured", name))
			}
		}

		active := c.ActiveSources()
		if len(active) == 0 {
			errs = append(errs, fmt.Errorf("no sources enabled"))
		}
		for _, src := range active {
			if key, needsKey := c.APIKey(src.Scanner); needsKey && key == "" {
				errs = append(errs, fmt.Errorf("source %s (%s): %w", src.Name, src.Scanner, ErrMissingCredential))
			}
		}
	}

	if needs.LLM && c.ChatGPT.APIKey == "" {
		errs = append(errs, fmt.Errorf("chatgpt.apiKey: %w", ErrMissingCredential))
	}

	return errors.Join(errs...)
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "civilai.sqlite?_foreign_keys=on"},
		Pipeline: PipelineConfig{
			TargetCount:    1000,
			LookbackDays:   30,
			MinBodyLength:  800,
			Concurrency:    10,
			FullText:       FullTextFallback,
			Language:       "en",
			RequestTimeout: 30 * time.Second,
			ExtractTimeout: 25 * time.Second,
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, MetricsAddr: ":9108", location: tz},
		ChatGPT: ChatGPTConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			Timeout:  60 * time.Second,
		},
		Classifier: ClassifierConfig{MaxContentChars: 2000, AbstractContentChars: 3000},
		Sources:    defaultSources(),
	}
}

func defaultSources() []SourceConfig {
	feeds := []string{
		"https://www.enr.com/rss/articles",
		"https://www.constructiondive.com/feeds/news/",
		"https://csengineermag.com/feed/",
		"https://www.bimplus.co.uk/feed/",
		"https://www.globalconstructionreview.com/feed/",
		"https://www.concrete.org/Portals/0/Files/RSS/ACI-News.xml",
		"https://www.roadsbridges.com/rss.xml",
		"https://www.autodesk.com/blogs/construction/feed/",
		"https://www.bentley.com/category/blog/feed/",
		"https://construction.trimble.com/blog/rss.xml",
		"https://techcrunch.com/category/ai/feed/",
		"https://venturebeat.com/category/ai/feed/",
		"https://www.wired.com/feed/tag/ai/",
	}
	rssCategories := make([]CategoryConfig, 0, len(feeds))
	for _, f := range feeds {
		rssCategories = append(rssCategories, CategoryConfig{Name: f, URL: f})
	}

	yes := true
	return []SourceConfig{
		{Name: "rss", Scanner: "rss", Enabled: &yes, Categories: rssCategories},
		{
			Name:    "sitemaps",
			Scanner: "sitemap",
			Enabled: &yes,
			Domains: []string{
				"www.enr.com",
				"www.constructiondive.com",
				"csengineermag.com",
				"www.globalconstructionreview.com",
				"www.autodesk.com",
				"www.bentley.com",
				"construction.trimble.com",
			},
			Options: map[string]string{"maxUrls": "120"},
		},
		{Name: "gdelt", Scanner: "gdelt", Enabled: &yes, RateInterval: 5 * time.Second},
		{
			Name:    "arxiv-robotics",
			Scanner: "arxiv",
			Categories: []CategoryConfig{
				{Name: "cs.RO", URL: "https://export.arxiv.org/list/cs.RO/pastweek"},
				{Name: "cs.CV", URL: "https://export.arxiv.org/list/cs.CV/pastweek"},
			},
		},
		{Name: "newsapi", Scanner: "newsapi", MaxPages: 3, RateInterval: time.Second},
		{Name: "guardian", Scanner: "guardian", MaxPages: 2, RateInterval: time.Second},
		{Name: "nytimes", Scanner: "nytimes", MaxPages: 2, RateInterval: 12 * time.Second},
		{Name: "serpapi", Scanner: "serpapi", RateInterval: time.Second},
	}
}
