package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/aescanero/chloe/pkg/domain"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the Chloe service
type Config struct {
	// Server configuration
	HTTPPort    int      `env:"CHLOE_HTTP_PORT" envDefault:"8080"`
	GRPCPort    int      `env:"CHLOE_GRPC_PORT" envDefault:"9090"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	APIKey      string   `env:"API_KEY"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// Run persistence and event delivery
	Storage StorageConfig

	// Redis configuration
	Redis RedisConfig

	// LLM configuration
	LLM LLMConfig

	// LinkedIn scraping through Apify actors
	Apify ApifyConfig

	// Agent defaults
	Agent AgentConfig

	// Worker configuration
	Workers WorkerConfig

	// Timeouts
	Timeouts TimeoutConfig

	// Tracing
	Tracing TracingConfig
}

// StorageConfig selects the run store and event bus backends
type StorageConfig struct {
	Backend    string        `env:"STORAGE_BACKEND" envDefault:"memory"`
	EventBus   string        `env:"EVENT_BUS" envDefault:"memory"`
	SQLitePath string        `env:"SQLITE_PATH" envDefault:"chloe.db"`
	RunTTL     time.Duration `env:"RUN_TTL" envDefault:"24h"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"LLM_API_KEY"`
	BaseURL  string `env:"LLM_BASE_URL"`

	// Concurrency and retries
	MaxConcurrentRequests int           `env:"LLM_MAX_CONCURRENT_REQUESTS" envDefault:"30"`
	MaxRetries            int           `env:"LLM_MAX_RETRIES" envDefault:"2"`
	RequestTimeout        time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"120s"`

	// Model per processing mode
	ModelFast     string `env:"LLM_MODEL_FAST" envDefault:"claude-haiku-4-5"`
	ModelBalanced string `env:"LLM_MODEL_BALANCED" envDefault:"claude-sonnet-4-5"`
	ModelPro      string `env:"LLM_MODEL_PRO" envDefault:"claude-opus-4-1"`

	DefaultTemperature float64 `env:"LLM_DEFAULT_TEMPERATURE" envDefault:"0.7"`
	DefaultMaxTokens   int     `env:"LLM_DEFAULT_MAX_TOKENS" envDefault:"4096"`
}

// ApifyConfig holds the scraper client configuration
type ApifyConfig struct {
	Token             string        `env:"APIFY_API_TOKEN"`
	BaseURL           string        `env:"APIFY_BASE_URL" envDefault:"https://api.apify.com/v2"`
	ProfileActor      string        `env:"APIFY_PROFILE_ACTOR" envDefault:"apimaestro/linkedin-profile-detail"`
	PostsActor        string        `env:"APIFY_POSTS_ACTOR" envDefault:"apimaestro/linkedin-profile-posts"`
	ReactionsActor    string        `env:"APIFY_REACTIONS_ACTOR" envDefault:"apimaestro/linkedin-profile-reactions"`
	RequestsPerSecond float64       `env:"APIFY_REQUESTS_PER_SECOND" envDefault:"5"`
	Burst             int           `env:"APIFY_BURST" envDefault:"5"`
	Timeout           time.Duration `env:"APIFY_TIMEOUT" envDefault:"300s"`
}

// AgentConfig holds the analysis defaults
type AgentConfig struct {
	DefaultOutreachLanguage string `env:"AGENT_DEFAULT_OUTREACH_LANGUAGE" envDefault:"French"`
	CompanyName             string `env:"AGENT_COMPANY_NAME"`
	CompanyContext          string `env:"AGENT_COMPANY_CONTEXT"`
	// ProfileFile is an optional YAML agent profile
	ProfileFile string `env:"AGENT_PROFILE_FILE"`

	// Prompts are loaded from the agent profile
	Prompts PromptOverrides `env:"-"`
}

// PromptOverrides replaces the built-in prompt templates
type PromptOverrides struct {
	Profile      string `yaml:"profile"`
	Interactions string `yaml:"interactions"`
	Outreach     string `yaml:"outreach"`
}

// AgentProfile is the YAML document referenced by AGENT_PROFILE_FILE
type AgentProfile struct {
	CompanyName             string          `yaml:"company_name"`
	CompanyContext          string          `yaml:"company_context"`
	DefaultOutreachLanguage string          `yaml:"default_outreach_language"`
	Prompts                 PromptOverrides `yaml:"prompts"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	QueueSize           int           `env:"WORKER_QUEUE_SIZE" envDefault:"100"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	RunTimeout      time.Duration `env:"TIMEOUT_RUN" envDefault:"3600s"`  // 1 hour
	NodeTimeout     time.Duration `env:"TIMEOUT_NODE" envDefault:"300s"`  // 5 minutes
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// TracingConfig selects the span exporter
type TracingConfig struct {
	Exporter     string  `env:"TRACING_EXPORTER" envDefault:"none"`
	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ServiceName  string  `env:"OTEL_SERVICE_NAME" envDefault:"chloe"`
	SampleRatio  float64 `env:"TRACING_SAMPLE_RATIO" envDefault:"1.0"`
}

// Load reads an optional .env file, then configuration from environment
// variables, then the optional agent profile
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Agent.ProfileFile != "" {
		profile, err := LoadAgentProfile(cfg.Agent.ProfileFile)
		if err != nil {
			return nil, err
		}
		cfg.Agent.apply(profile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadAgentProfile reads a YAML agent profile
func LoadAgentProfile(path string) (*AgentProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent profile: %w", err)
	}

	var profile AgentProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse agent profile %s: %w", path, err)
	}
	return &profile, nil
}

// apply fills the agent config from a profile. Company values set in the
// environment take precedence.
func (a *AgentConfig) apply(p *AgentProfile) {
	if a.CompanyName == "" {
		a.CompanyName = p.CompanyName
	}
	if a.CompanyContext == "" {
		a.CompanyContext = p.CompanyContext
	}
	if p.DefaultOutreachLanguage != "" {
		a.DefaultOutreachLanguage = p.DefaultOutreachLanguage
	}
	a.Prompts = p.Prompts
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	// Validate storage config
	switch c.Storage.Backend {
	case "memory", "sqlite":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis storage backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s (must be memory, redis, or sqlite)", c.Storage.Backend)
	}
	switch c.Storage.EventBus {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported event bus: %s (must be memory or redis)", c.Storage.EventBus)
	}

	// Validate LLM config
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required")
	}
	switch c.LLM.Provider {
	case "anthropic", "openai", "gemini":
	default:
		return fmt.Errorf("unsupported LLM provider: %s (must be anthropic, openai, or gemini)", c.LLM.Provider)
	}
	if c.LLM.MaxConcurrentRequests < 1 {
		return fmt.Errorf("LLM max concurrent requests must be at least 1")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("LLM max retries must not be negative")
	}

	// Validate scraper config
	if c.Apify.Token == "" {
		return fmt.Errorf("Apify API token is required")
	}
	if c.Apify.RequestsPerSecond <= 0 {
		return fmt.Errorf("Apify requests per second must be positive")
	}

	if !domain.IsSupportedLanguage(c.Agent.DefaultOutreachLanguage) {
		return fmt.Errorf("unsupported default outreach language: %s", c.Agent.DefaultOutreachLanguage)
	}

	// Validate worker config
	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}
	if c.Workers.QueueSize < 1 {
		return fmt.Errorf("worker queue size must be at least 1")
	}

	switch c.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("unsupported tracing exporter: %s (must be none, stdout, or otlp)", c.Tracing.Exporter)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Models maps processing modes to the configured model names
func (c *Config) Models() map[domain.ProcessingMode]string {
	return map[domain.ProcessingMode]string{
		domain.ModeFast:     c.LLM.ModelFast,
		domain.ModeBalanced: c.LLM.ModelBalanced,
		domain.ModePro:      c.LLM.ModelPro,
	}
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
