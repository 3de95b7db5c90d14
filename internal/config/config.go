package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	SerpApi    SerpApiConfig    `yaml:"serpapi" mapstructure:"serpapi"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Email      EmailConfig      `yaml:"email" mapstructure:"email"`
	Sitecheck  SitecheckConfig  `yaml:"sitecheck" mapstructure:"sitecheck"`
	Outreach   OutreachConfig   `yaml:"outreach" mapstructure:"outreach"`
	Queue      QueueConfig      `yaml:"queue" mapstructure:"queue"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Webhook    WebhookConfig    `yaml:"webhook" mapstructure:"webhook"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects and configures the lead store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// SerpApiConfig holds the social intent search settings.
type SerpApiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds the AI personalization settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EmailConfig configures the outbound email driver.
type EmailConfig struct {
	Driver       string `yaml:"driver" mapstructure:"driver"` // resend, smtp, or empty to disable sending
	FromName     string `yaml:"from_name" mapstructure:"from_name"`
	FromAddress  string `yaml:"from_address" mapstructure:"from_address"`
	BCC          string `yaml:"bcc" mapstructure:"bcc"`
	ReplyTo      string `yaml:"reply_to" mapstructure:"reply_to"`
	ResendKey    string `yaml:"resend_key" mapstructure:"resend_key"`
	ResendURL    string `yaml:"resend_url" mapstructure:"resend_url"`
	SMTPHost     string `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port" mapstructure:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user" mapstructure:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password" mapstructure:"smtp_password"`
}

// From renders the sender as "Name <address>".
func (e EmailConfig) From() string {
	if e.FromName == "" {
		return e.FromAddress
	}
	return e.FromName + " <" + e.FromAddress + ">"
}

// SitecheckConfig configures website analysis.
type SitecheckConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	BatchLimit  int     `yaml:"batch_limit" mapstructure:"batch_limit"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// OutreachConfig configures decisions and batch outreach runs.
type OutreachConfig struct {
	UseAI         bool `yaml:"use_ai" mapstructure:"use_ai"`
	BatchLimit    int  `yaml:"batch_limit" mapstructure:"batch_limit"`
	BreakerFails  int  `yaml:"breaker_fails" mapstructure:"breaker_fails"`
	BreakerResetS int  `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// QueueConfig selects the event queue used for follow-up triggers.
type QueueConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"` // memory or amqp
	AMQPURL            string `yaml:"amqp_url" mapstructure:"amqp_url"`
	Exchange           string `yaml:"exchange" mapstructure:"exchange"`
	Queue              string `yaml:"queue" mapstructure:"queue"`
	DeadLetterExchange string `yaml:"dead_letter_exchange" mapstructure:"dead_letter_exchange"`
	Buffer             int    `yaml:"buffer" mapstructure:"buffer"`
	Workers            int    `yaml:"workers" mapstructure:"workers"`
}

// RedisConfig configures the event dedupe window. Empty Addr disables Redis.
type RedisConfig struct {
	Addr          string `yaml:"addr" mapstructure:"addr"`
	Password      string `yaml:"password" mapstructure:"password"`
	DB            int    `yaml:"db" mapstructure:"db"`
	DedupeTTLSecs int    `yaml:"dedupe_ttl_secs" mapstructure:"dedupe_ttl_secs"`
}

// SalesforceConfig holds Salesforce JWT credentials for human handoff.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// Enabled reports whether handoff to Salesforce is configured.
func (s SalesforceConfig) Enabled() bool {
	return s.ClientID != "" && s.KeyPath != ""
}

// WebhookConfig holds the optional sourced-leads notification hook.
type WebhookConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	JWTSecret   string   `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file, and environment.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.prospect")
	}

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "prospect.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("google.key", "")
	v.SetDefault("google.rate_per_sec", 5.0)
	v.SetDefault("serpapi.key", "")
	v.SetDefault("serpapi.base_url", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("email.driver", "")
	v.SetDefault("email.from_name", "")
	v.SetDefault("email.from_address", "")
	v.SetDefault("email.bcc", "")
	v.SetDefault("email.reply_to", "")
	v.SetDefault("email.resend_key", "")
	v.SetDefault("email.resend_url", "https://api.resend.com")
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.smtp_user", "")
	v.SetDefault("email.smtp_password", "")
	v.SetDefault("sitecheck.timeout_secs", 15)
	v.SetDefault("sitecheck.rate_per_sec", 2.0)
	v.SetDefault("sitecheck.batch_limit", 10)
	v.SetDefault("sitecheck.user_agent", "Mozilla/5.0 (compatible; ProspectBot/1.0)")
	v.SetDefault("outreach.use_ai", true)
	v.SetDefault("outreach.batch_limit", 10)
	v.SetDefault("outreach.breaker_fails", 5)
	v.SetDefault("outreach.breaker_reset_secs", 60)
	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.amqp_url", "")
	v.SetDefault("queue.exchange", "prospect.events")
	v.SetDefault("queue.queue", "prospect.events.dispatch")
	v.SetDefault("queue.dead_letter_exchange", "prospect.events.dlx")
	v.SetDefault("queue.buffer", 256)
	v.SetDefault("queue.workers", 2)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dedupe_ttl_secs", 600)
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.timeout_secs", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// loadDotEnv populates the process environment from path when it exists.
// Variables already set in the environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return eris.Wrapf(err, "config: load %s", path)
	}
	return nil
}

// Validate checks that the keys a command mode depends on are present.
// Modes: "serve", "worker", "cli".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}

	switch c.Email.Driver {
	case "":
	case "resend":
		if c.Email.ResendKey == "" {
			errs = append(errs, "email.resend_key is required for the resend driver")
		}
	case "smtp":
		if c.Email.SMTPHost == "" {
			errs = append(errs, "email.smtp_host is required for the smtp driver")
		}
	default:
		errs = append(errs, "email.driver must be resend, smtp, or empty")
	}
	if c.Email.Driver != "" && c.Email.FromAddress == "" {
		errs = append(errs, "email.from_address is required when sending is enabled")
	}

	switch c.Queue.Driver {
	case "memory":
		if mode == "worker" {
			errs = append(errs, "worker mode requires queue.driver amqp")
		}
	case "amqp":
		if c.Queue.AMQPURL == "" {
			errs = append(errs, "queue.amqp_url is required for the amqp driver")
		}
	default:
		errs = append(errs, "queue.driver must be memory or amqp")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		if c.Server.JWTSecret == "" {
			errs = append(errs, "server.jwt_secret is required to serve")
		}
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
