package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. A .env file in the working
// directory is loaded into the process environment first when present.
func New() (*Config, error) {
	return NewWithFile("")
}

// NewWithFile is New with an explicit config file instead of the search path
func NewWithFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/rfp-manager/")
	v.AddConfigPath("$HOME/.rfp-manager")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if path != "" {
		v.SetConfigFile(path)
	}

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("RFP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by existing deployments
	_ = v.BindEnv("openai.api_key", "RFP_OPENAI_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("gemini.api_key", "RFP_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("smtp.user", "RFP_SMTP_USER", "SMTP_USER")
	_ = v.BindEnv("smtp.password", "RFP_SMTP_PASSWORD", "SMTP_PASS")
	_ = v.BindEnv("imap.user", "RFP_IMAP_USER", "IMAP_USER")
	_ = v.BindEnv("imap.password", "RFP_IMAP_PASSWORD", "IMAP_PASS")
	_ = v.BindEnv("store.postgres_url", "RFP_STORE_POSTGRES_URL", "DATABASE_URL")
	_ = v.BindEnv("lock.redis_url", "RFP_LOCK_REDIS_URL", "REDIS_URL")
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Generator defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_body_size", 8192)

	// OpenAI-compatible defaults point at Groq
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("openai.model_name", "llama-3.1-8b-instant")
	v.SetDefault("openai.max_tokens", 1024)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 1.0)
	v.SetDefault("openai.json_mode", true)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 1024)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1024)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)

	// Store defaults
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.sqlite_path", "./data/rfp.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/rfp_manager?parseTime=true")
	v.SetDefault("store.postgres_url", "postgres://localhost:5432/rfp_manager")

	// Outbound mail defaults
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 465)
	v.SetDefault("smtp.security", "tls")
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.helo", "localhost")
	v.SetDefault("smtp.timeout", "30s")

	// Inbox defaults
	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.user", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.peek", true)
	v.SetDefault("imap.timeout", "30s")

	// Poll defaults
	v.SetDefault("poll.correlate_subject", false)
	v.SetDefault("poll.mark_seen", false)
	v.SetDefault("matching.normalize_email", true)

	// Lock defaults
	v.SetDefault("lock.type", "memory")
	v.SetDefault("lock.ttl", "10m")
	v.SetDefault("lock.key", "rfp-manager:poll-lock")
	v.SetDefault("lock.redis_url", "redis://localhost:6379/0")

	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.debug_errors", false)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// Set overrides a configuration value
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}

// Validate checks the settings every process needs
func (c *Config) Validate() error {
	var problems []string

	for _, key := range []string{"llm.timeout", "smtp.timeout", "imap.timeout", "lock.ttl",
		"server.read_timeout", "server.write_timeout", "server.idle_timeout", "server.shutdown_timeout"} {
		if _, err := c.GetDuration(key); err != nil {
			problems = append(problems, err.Error())
		}
	}

	switch p := c.GetString("llm.provider"); p {
	case "openai", "gemini", "bedrock":
	default:
		problems = append(problems, fmt.Sprintf("unsupported llm.provider %q", p))
	}
	switch s := c.GetString("store.type"); s {
	case "memory", "sqlite", "mysql", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("unsupported store.type %q", s))
	}
	switch l := c.GetString("lock.type"); l {
	case "memory", "redis":
	default:
		problems = append(problems, fmt.Sprintf("unsupported lock.type %q", l))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
