package config

import (
	"fmt"
	"strings"
	"time"
)

// LLMConfig represents the settings shared by every generator provider
type LLMConfig struct {
	Provider    string
	Timeout     time.Duration
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI-compatible APIs such as Groq
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	JSONMode    bool
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// StoreConfig represents the persistence backend configuration
type StoreConfig struct {
	Type        string
	SQLitePath  string
	MySQLDSN    string
	PostgresURL string
}

// SMTPConfig represents the outbound mail configuration.
// Security is one of "tls", "starttls" or "none".
type SMTPConfig struct {
	Host     string
	Port     int
	Security string
	User     string
	Password string
	From     string
	Helo     string
	Timeout  time.Duration
}

// Address returns host:port
func (s SMTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Sender returns the envelope sender, falling back to the login user
func (s SMTPConfig) Sender() string {
	if s.From != "" {
		return s.From
	}
	return s.User
}

// IMAPConfig represents the inbox configuration
type IMAPConfig struct {
	Host     string
	Port     int
	TLS      bool
	User     string
	Password string
	Mailbox  string
	Peek     bool
	Timeout  time.Duration
}

// Address returns host:port
func (i IMAPConfig) Address() string {
	return fmt.Sprintf("%s:%d", i.Host, i.Port)
}

// MissingCredentials lists the inbox settings that are not set
func (i IMAPConfig) MissingCredentials() []string {
	var missing []string
	if strings.TrimSpace(i.Host) == "" {
		missing = append(missing, "imap.host")
	}
	if strings.TrimSpace(i.User) == "" {
		missing = append(missing, "imap.user")
	}
	if i.Password == "" {
		missing = append(missing, "imap.password")
	}
	return missing
}

// PollConfig represents the inbox poll behaviour
type PollConfig struct {
	CorrelateSubject bool
	MarkSeen         bool
	NormalizeEmail   bool
}

// LockConfig represents the poll lock configuration
type LockConfig struct {
	Type     string
	TTL      time.Duration
	Key      string
	RedisURL string
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	ListenAddress   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	DebugErrors     bool
	CORSOrigins     []string
}

// durationOr parses key and falls back when it is unset or malformed.
// Validate reports malformed values at startup.
func (c *Config) durationOr(key string, fallback time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil {
		return fallback
	}
	return d
}

// GetLLM returns the generator configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:    c.GetString("llm.provider"),
		Timeout:     c.durationOr("llm.timeout", time.Minute),
		MaxBodySize: c.GetInt("llm.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		JSONMode:    c.GetBool("openai.json_mode"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetStore returns the store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:        c.GetString("store.type"),
		SQLitePath:  c.GetString("store.sqlite_path"),
		MySQLDSN:    c.GetString("store.mysql_dsn"),
		PostgresURL: c.GetString("store.postgres_url"),
	}
}

// GetSMTP returns the outbound mail configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Host:     c.GetString("smtp.host"),
		Port:     c.GetInt("smtp.port"),
		Security: strings.ToLower(c.GetString("smtp.security")),
		User:     c.GetString("smtp.user"),
		Password: c.GetString("smtp.password"),
		From:     c.GetString("smtp.from"),
		Helo:     c.GetString("smtp.helo"),
		Timeout:  c.durationOr("smtp.timeout", 30*time.Second),
	}
}

// GetIMAP returns the inbox configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Host:     c.GetString("imap.host"),
		Port:     c.GetInt("imap.port"),
		TLS:      c.GetBool("imap.tls"),
		User:     c.GetString("imap.user"),
		Password: c.GetString("imap.password"),
		Mailbox:  c.GetString("imap.mailbox"),
		Peek:     c.GetBool("imap.peek"),
		Timeout:  c.durationOr("imap.timeout", 30*time.Second),
	}
}

// GetPoll returns the inbox poll configuration
func (c *Config) GetPoll() PollConfig {
	return PollConfig{
		CorrelateSubject: c.GetBool("poll.correlate_subject"),
		MarkSeen:         c.GetBool("poll.mark_seen"),
		NormalizeEmail:   c.GetBool("matching.normalize_email"),
	}
}

// GetLock returns the poll lock configuration
func (c *Config) GetLock() LockConfig {
	return LockConfig{
		Type:     c.GetString("lock.type"),
		TTL:      c.durationOr("lock.ttl", 10*time.Minute),
		Key:      c.GetString("lock.key"),
		RedisURL: c.GetString("lock.redis_url"),
	}
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		ReadTimeout:     c.durationOr("server.read_timeout", 15*time.Second),
		WriteTimeout:    c.durationOr("server.write_timeout", 5*time.Minute),
		IdleTimeout:     c.durationOr("server.idle_timeout", time.Minute),
		ShutdownTimeout: c.durationOr("server.shutdown_timeout", 30*time.Second),
		DebugErrors:     c.GetBool("server.debug_errors"),
		CORSOrigins:     c.GetStringSlice("server.cors_origins"),
	}
}
