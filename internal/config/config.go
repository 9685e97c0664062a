package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "Asia/Taipei"
	configPathEnv     = "PRICE_NEWS_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	redisAddrEnv      = "REDIS_ADDR"
	redisPasswordEnv  = "REDIS_PASSWORD"
	llmProviderEnv    = "LLM_PROVIDER"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	jwtSecretEnv      = "JWT_SECRET"
	httpAddrEnv       = "HTTP_ADDR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Site      SiteConfig      `yaml:"site"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Search    SearchConfig    `yaml:"search"`
	LLM       LLMConfig       `yaml:"llm"`
	HTTP      HTTPConfig      `yaml:"http"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	OpenData  OpenDataConfig  `yaml:"opendata"`
}

// LoggingConfig sets the minimum log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig selects the SQL driver ("postgres" or "sqlite3") and its DSN.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the cross-process run lock when Addr is set. The holder
// refreshes the key every LockTTL/3, so LockTTL bounds only how long a crashed
// process keeps other replicas from running.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockKey  string        `yaml:"lockKey"`
	LockTTL  time.Duration `yaml:"lockTtl"`
}

// SchedulerConfig defines how often ingestion runs and the backfill window.
type SchedulerConfig struct {
	Interval          time.Duration  `yaml:"interval"`
	BackfillPageStart int            `yaml:"backfillPageStart"`
	BackfillPageEnd   int            `yaml:"backfillPageEnd"`
	Timezone          string         `yaml:"timezone"`
	location          *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SiteConfig describes the crawled news site.
type SiteConfig struct {
	Name         string        `yaml:"name"`
	ListingURL   string        `yaml:"listingUrl"`
	BaseURL      string        `yaml:"baseUrl"`
	ChannelID    int           `yaml:"channelId"`
	UserAgent    string        `yaml:"userAgent"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimitRPS float64       `yaml:"rateLimitRps"`
}

// IngestionConfig controls the scheduled pipeline.
type IngestionConfig struct {
	SearchTerm  string        `yaml:"searchTerm"`
	Workers     int           `yaml:"workers"`
	ItemTimeout time.Duration `yaml:"itemTimeout"`
}

// SearchConfig controls the interactive search path.
type SearchConfig struct {
	Summarize bool          `yaml:"summarize"`
	IDBase    int64         `yaml:"idBase"`
	Timeout   time.Duration `yaml:"timeout"`
	Workers   int           `yaml:"workers"`
}

// LLMConfig defines how to contact the language model.
type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	Endpoint        string        `yaml:"endpoint"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"apiKey"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      int           `yaml:"maxRetries"`
	MaxTokens       int           `yaml:"maxTokens"`
	RelevancePrompt string        `yaml:"relevancePrompt"`
	SummaryPrompt   string        `yaml:"summaryPrompt"`
	KeywordPrompt   string        `yaml:"keywordPrompt"`
}

// HTTPConfig configures the query API.
type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	JWTSecret      string        `yaml:"jwtSecret"`
	TokenTTL       time.Duration `yaml:"tokenTtl"`
	AllowedOrigins []string      `yaml:"allowedOrigins"`
}

// TelegramConfig wires all data required to send digests.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// OpenDataConfig points at the necessities price feed.
type OpenDataConfig struct {
	PricesURL string        `yaml:"pricesUrl"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// loadFile decodes a YAML file over the current values; absent keys keep their defaults.
func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{logLevelEnv, &c.Logging.Level},
		{databaseDriverEnv, &c.Database.Driver},
		{databaseDSNEnv, &c.Database.DSN},
		{redisAddrEnv, &c.Redis.Addr},
		{redisPasswordEnv, &c.Redis.Password},
		{llmProviderEnv, &c.LLM.Provider},
		{openAIAPIKeyEnv, &c.LLM.APIKey},
		{llmAPIKeyEnv, &c.LLM.APIKey},
		{llmModelEnv, &c.LLM.Model},
		{jwtSecretEnv, &c.HTTP.JWTSecret},
		{httpAddrEnv, &c.HTTP.Addr},
		{telegramTokenEnv, &c.Telegram.BotToken},
		{telegramChatIDEnv, &c.Telegram.ChatID},
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
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

// Validate reports settings that make the process unable to run.
func (c Config) Validate() error {
	var problems []string
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		problems = append(problems, "database.dsn is empty")
	}
	if c.Ingestion.SearchTerm == "" {
		problems = append(problems, "ingestion.searchTerm is empty")
	}
	if c.Scheduler.Interval <= 0 {
		problems = append(problems, "scheduler.interval must be positive")
	}
	if c.Scheduler.BackfillPageStart < 1 || c.Scheduler.BackfillPageEnd < c.Scheduler.BackfillPageStart {
		problems = append(problems, "scheduler backfill page window is invalid")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "file:news.db?_busy_timeout=5000&_journal_mode=WAL"},
		Redis:    RedisConfig{LockKey: "pricenews:ingestion:lock", LockTTL: 30 * time.Minute},
		Scheduler: SchedulerConfig{
			Interval:          100 * time.Minute,
			BackfillPageStart: 1,
			BackfillPageEnd:   10,
			Timezone:          defaultTimezone,
		},
		Site: SiteConfig{
			Name:         "udn",
			ListingURL:   "https://udn.com/api/more",
			BaseURL:      "https://udn.com",
			ChannelID:    2,
			UserAgent:    "PriceNewsScanner/1.0",
			Timeout:      10 * time.Second,
			RateLimitRPS: 2,
		},
		Ingestion: IngestionConfig{
			SearchTerm:  "價格",
			Workers:     1,
			ItemTimeout: 2 * time.Minute,
		},
		Search: SearchConfig{
			Summarize: false,
			IDBase:    1_000_000_000,
			Timeout:   90 * time.Second,
			Workers:   4,
		},
		LLM: LLMConfig{
			Provider:        "openai",
			Endpoint:        "https://api.openai.com/v1/chat/completions",
			Model:           "gpt-4o-mini",
			Timeout:         30 * time.Second,
			MaxRetries:      3,
			MaxTokens:       512,
			RelevancePrompt: defaultRelevancePrompt,
			SummaryPrompt:   defaultSummaryPrompt,
			KeywordPrompt:   defaultKeywordPrompt,
		},
		HTTP: HTTPConfig{
			Addr:           ":8000",
			TokenTTL:       24 * time.Hour,
			AllowedOrigins: []string{"http://localhost:8080"},
		},
		OpenData: OpenDataConfig{
			PricesURL: "https://opendata.ey.gov.tw/api/ConsumerProtection/NecessitiesPrice",
			Timeout:   10 * time.Second,
		},
	}
}

const (
	defaultRelevancePrompt = "你是一個關聯度評估機器人，請評估新聞標題是否與「民生用品的價格變化」相關，並給予'high'、'medium'、'low'評價。(僅需回答'high'、'medium'、'low'三個詞之一)"
	defaultSummaryPrompt   = `你是一個新聞摘要生成機器人，請統整新聞中提及的影響及主要原因 (影響、原因各50個字，請以json格式回答 {"影響": "...", "原因": "..."})`
	defaultKeywordPrompt   = "你是一個關鍵字提取機器人，用戶將會輸入一段文字，表示其希望看見的新聞內容，請提取出用戶希望看見的關鍵字，請截取最重要的關鍵字即可，避免出現「新聞」、「資訊」等混淆搜尋引擎的字詞。(僅須回答關鍵字，若有多個關鍵字，請以空格分隔)"
)
