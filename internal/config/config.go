package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Azure     AzureConfig
	AI        AIConfig
	Risk      RiskConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// StorageConfig selects and configures the key/value storage driver
type StorageConfig struct {
	Driver         string // memory, file, postgres or blob
	Dir            string
	DatabaseURL    string
	MaxConns       int32
	EncryptionKey  string // 64 hex chars, optional
	PersistTimeout time.Duration
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	OpenAI  OpenAIConfig
	Storage BlobConfig
}

// OpenAIConfig holds Azure OpenAI configuration
type OpenAIConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

// BlobConfig holds Azure Blob Storage configuration
type BlobConfig struct {
	AccountName     string
	AccountKey      string
	StateContainer  string
	ReportContainer string
}

// AIConfig selects the generative AI provider
type AIConfig struct {
	Provider       string // openai, gemini or none
	GeminiAPIKey   string
	GeminiModel    string
	GeminiEndpoint string
	Timeout        time.Duration
	RequestsPerMin int
}

// RiskConfig holds the risk score deltas applied per vital status
type RiskConfig struct {
	Critical int
	High     int
	Elevated int
	Normal   int
}

// AuditConfig holds audit trail configuration
type AuditConfig struct {
	DatabaseURL string
}

// RateLimitConfig holds HTTP rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("careplanner")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/careplanner")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.allowedorigins", []string{"*"})

	// Storage defaults
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("storage.maxconns", 10)
	v.SetDefault("storage.persisttimeout", 5*time.Second)

	// Azure defaults
	v.SetDefault("azure.openai.apiversion", "2024-08-01-preview")
	v.SetDefault("azure.storage.statecontainer", "careplanner-state")

	// AI defaults
	v.SetDefault("ai.provider", "none")
	v.SetDefault("ai.geminimodel", "gemini-2.5-flash")
	v.SetDefault("ai.geminiendpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.requestspermin", 30)

	// Risk policy defaults
	v.SetDefault("risk.critical", 25)
	v.SetDefault("risk.high", 15)
	v.SetDefault("risk.elevated", 5)
	v.SetDefault("risk.normal", -5)

	v.SetDefault("ratelimit.requestspersecond", 20.0)
	v.SetDefault("ratelimit.burst", 40)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")
	v.BindEnv("server.allowedorigins", "ALLOWED_ORIGINS")

	// Storage
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.dir", "STORAGE_DIR")
	v.BindEnv("storage.databaseurl", "DATABASE_URL")
	v.BindEnv("storage.encryptionkey", "STORAGE_ENCRYPTION_KEY")

	// Azure OpenAI
	v.BindEnv("azure.openai.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("azure.openai.apikey", "AZURE_OPENAI_API_KEY")
	v.BindEnv("azure.openai.deployment", "AZURE_OPENAI_DEPLOYMENT")
	v.BindEnv("azure.openai.apiversion", "AZURE_OPENAI_API_VERSION")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("azure.storage.statecontainer", "AZURE_STORAGE_STATE_CONTAINER")
	v.BindEnv("azure.storage.reportcontainer", "AZURE_STORAGE_REPORT_CONTAINER")

	// AI
	v.BindEnv("ai.provider", "AI_PROVIDER")
	v.BindEnv("ai.geminiapikey", "GEMINI_API_KEY")
	v.BindEnv("ai.geminimodel", "GEMINI_MODEL")

	// Audit
	v.BindEnv("audit.databaseurl", "AUDIT_DATABASE_URL")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "file":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the file driver")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.databaseurl is required for the postgres driver")
		}
	case "blob":
		if !c.Azure.Storage.Configured() {
			return fmt.Errorf("azure storage account name and key are required for the blob driver")
		}
		if c.Azure.Storage.StateContainer == "" {
			return fmt.Errorf("azure.storage.statecontainer is required for the blob driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Storage.EncryptionKey != "" {
		key, err := hex.DecodeString(c.Storage.EncryptionKey)
		if err != nil || len(key) != 32 {
			return fmt.Errorf("storage.encryptionkey must be 64 hex characters")
		}
	}

	switch c.AI.Provider {
	case "none":
	case "openai":
		if c.Azure.OpenAI.Endpoint == "" {
			return fmt.Errorf("azure.openai.endpoint is required")
		}
		if c.Azure.OpenAI.APIKey == "" {
			return fmt.Errorf("azure.openai.apikey is required")
		}
		if c.Azure.OpenAI.Deployment == "" {
			return fmt.Errorf("azure.openai.deployment is required")
		}
	case "gemini":
		if c.AI.GeminiAPIKey == "" {
			return fmt.Errorf("ai.geminiapikey is required")
		}
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}

	if c.Azure.Storage.ReportContainer != "" && !c.Azure.Storage.Configured() {
		return fmt.Errorf("azure storage account name and key are required to archive reports")
	}

	return nil
}

// Configured reports whether blob storage credentials are present
func (b BlobConfig) Configured() bool {
	return b.AccountName != "" && b.AccountKey != ""
}

// IsProduction reports whether the server runs in production mode
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}
