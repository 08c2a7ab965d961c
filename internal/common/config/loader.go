// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment overlay is optional

	return finalize(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finalize(v)
}

func finalize(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // tests in test/e2e/
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are still empty from well-known env vars.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.APIs.Reasoning.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.APIs.WebSearch.APIKey, "PERPLEXITY_API_KEY")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
	setIfEmpty(&cfg.AWS.SNS.TopicARN, "AUDIT_SNS_TOPIC_ARN")
	setIfEmpty(&cfg.AWS.SES.Sender, "ALERT_EMAIL_SENDER")
}

func setIfEmpty(field *string, envKey string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "resource-discovery"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	// Reasoning defaults
	r := &cfg.APIs.Reasoning
	if r.Model == "" {
		r.Model = "gpt-4.1"
	}
	if r.StreamModel == "" {
		r.StreamModel = "gpt-4o-mini"
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = 1000
	}
	if r.Temperature == 0 {
		r.Temperature = 0.7
	}
	if r.Timeout == 0 {
		r.Timeout = 30000
	}

	// Web search defaults
	w := &cfg.APIs.WebSearch
	if w.BaseURL == "" {
		w.BaseURL = "https://api.perplexity.ai"
	}
	if w.Model == "" {
		w.Model = "llama-3.1-sonar-small-128k-online"
	}
	if w.MaxTokens == 0 {
		w.MaxTokens = 1000
	}
	if w.Timeout == 0 {
		w.Timeout = 10000
	}
	if w.MaxRetries == 0 {
		w.MaxRetries = 2
	}
	if w.RequestsPerSecond == 0 {
		w.RequestsPerSecond = 5
	}
	if w.Burst == 0 {
		w.Burst = 10
	}

	if cfg.Auth.Timeout == 0 {
		cfg.Auth.Timeout = 3000
	}
	if cfg.Auth.CacheTTL == 0 {
		cfg.Auth.CacheTTL = 300
	}

	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "redis"
	}
	if cfg.Resources.Backend == "" {
		cfg.Resources.Backend = "postgres"
	}
	if cfg.Resources.Index == "" {
		cfg.Resources.Index = "resources"
	}

	// Orchestrator defaults
	o := &cfg.Orchestrator
	if o.MaxContextTurns == 0 {
		o.MaxContextTurns = 6
	}
	if o.MinLocalResources == 0 {
		o.MinLocalResources = 2
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = 45000
	}
	if o.LookupTimeout == 0 {
		o.LookupTimeout = 5000
	}
	if o.UsageTimeout == 0 {
		o.UsageTimeout = 3000
	}

	if cfg.Camunda.JobType == "" {
		cfg.Camunda.JobType = "ai-resource-discovery"
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 60000
	}

	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	usesPostgres := cfg.RateLimit.Backend == "postgres" || cfg.Resources.Backend == "postgres" || cfg.Audit.Enabled

	switch cfg.RateLimit.Backend {
	case "redis", "postgres", "memory":
	default:
		return fmt.Errorf("rate_limit.backend %q is not supported", cfg.RateLimit.Backend)
	}

	switch cfg.Resources.Backend {
	case "postgres":
	case "elasticsearch":
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required")
		}
	default:
		return fmt.Errorf("resources.backend %q is not supported", cfg.Resources.Backend)
	}

	if usesPostgres {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if (cfg.RateLimit.Backend == "redis" || cfg.Resources.CacheTTL > 0) && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	if cfg.AWS.SNS.Enabled && cfg.AWS.SNS.TopicARN == "" {
		return fmt.Errorf("aws.sns.topic_arn is required when sns is enabled")
	}

	if cfg.AWS.SES.Enabled && (cfg.AWS.SES.Sender == "" || len(cfg.AWS.SES.Recipients) == 0) {
		return fmt.Errorf("aws.ses.sender and aws.ses.recipients are required when ses is enabled")
	}

	if cfg.Server.TrustedProxyHops < 0 {
		return fmt.Errorf("server.trusted_proxy_hops must not be negative")
	}

	if cfg.Orchestrator.MaxContextTurns < 0 {
		return fmt.Errorf("orchestrator.max_context_turns must not be negative")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
