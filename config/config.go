package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerPort  string
	ServerHost  string
	CORSOrigins []string

	// Database configuration
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	SQLitePath    string
	MigrationsDir string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Identity
	AuthMode  string
	JWTSecret string
	DevUserID string

	// Model endpoint
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	ExtractionModel     string
	RecommendationModel string
	ModelTimeout        time.Duration
	AIRateLimitPerHour  int

	// AWS
	AWSRegion                string
	PhotoBucket              string
	RekognitionEnabled       bool
	RekognitionMinConfidence float64

	// Logging
	LogLevel           string
	LogFormat          string
	LogstashAddr       string
	ElasticsearchURL   string
	ElasticsearchIndex string
}

const (
	AuthModeJWT = "jwt"
	AuthModeDev = "dev"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("cors_origins", "http://localhost:5173")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_name", "macrolog")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("sqlite_path", "macrolog.db")
	v.SetDefault("migrations_dir", "migrations")

	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_db", 0)

	v.SetDefault("auth_mode", AuthModeJWT)
	v.SetDefault("dev_user_id", "dev-user")

	v.SetDefault("openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("extraction_model", "o4-mini")
	v.SetDefault("recommendation_model", "gpt-4.1-mini")
	v.SetDefault("model_timeout", "60s")
	v.SetDefault("ai_rate_limit_per_hour", 30)

	v.SetDefault("rekognition_enabled", false)
	v.SetDefault("rekognition_min_confidence", 70)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("elasticsearch_index", "macrolog")
}

// LoadConfig builds the configuration from, in increasing precedence: defaults,
// an optional config.yml, a .env file (outside production), environment
// variables, *_FILE variables and Docker secrets for sensitive values.
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	if env != Production {
		// a missing .env is fine
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	timeout, err := time.ParseDuration(v.GetString("model_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid MODEL_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Environment: env,

		ServerPort:  v.GetString("server_port"),
		ServerHost:  v.GetString("server_host"),
		CORSOrigins: splitList(v.GetString("cors_origins")),

		DBDriver:      strings.ToLower(v.GetString("db_driver")),
		DBHost:        v.GetString("db_host"),
		DBPort:        v.GetString("db_port"),
		DBUser:        v.GetString("db_user"),
		DBName:        v.GetString("db_name"),
		DBSSLMode:     v.GetString("db_ssl_mode"),
		SQLitePath:    v.GetString("sqlite_path"),
		MigrationsDir: v.GetString("migrations_dir"),

		RedisHost: v.GetString("redis_host"),
		RedisPort: v.GetString("redis_port"),
		RedisDB:   v.GetInt("redis_db"),
		RedisURL:  v.GetString("redis_url"),

		AuthMode:  strings.ToLower(v.GetString("auth_mode")),
		DevUserID: v.GetString("dev_user_id"),

		OpenAIBaseURL:       v.GetString("openai_base_url"),
		ExtractionModel:     v.GetString("extraction_model"),
		RecommendationModel: v.GetString("recommendation_model"),
		ModelTimeout:        timeout,
		AIRateLimitPerHour:  v.GetInt("ai_rate_limit_per_hour"),

		AWSRegion:                v.GetString("aws_region"),
		PhotoBucket:              v.GetString("photo_bucket"),
		RekognitionEnabled:       v.GetBool("rekognition_enabled"),
		RekognitionMinConfidence: v.GetFloat64("rekognition_min_confidence"),

		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		LogstashAddr:       v.GetString("logstash_addr"),
		ElasticsearchURL:   v.GetString("elasticsearch_url"),
		ElasticsearchIndex: v.GetString("elasticsearch_index"),
	}

	secrets := map[string]*string{
		"db_user":        &cfg.DBUser,
		"db_password":    &cfg.DBPassword,
		"redis_password": &cfg.RedisPassword,
		"jwt_secret":     &cfg.JWTSecret,
		"openai_api_key": &cfg.OpenAIAPIKey,
	}
	for name, dst := range secrets {
		value, err := lookupSecret(v, name, env)
		if err != nil {
			return nil, err
		}
		if value != "" {
			*dst = value
		}
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// lookupSecret resolves a sensitive value. Production prefers Docker secrets;
// elsewhere the plain environment variable wins. NAME_FILE points at a file
// holding the value.
func lookupSecret(v *viper.Viper, name string, env Environment) (string, error) {
	if env == Production {
		if s := readSecret(name); s != "" {
			return s, nil
		}
	}
	if s := v.GetString(name); s != "" {
		return s, nil
	}
	if file := v.GetString(name + "_file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s file: %w", strings.ToUpper(name), err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return readSecret(name), nil
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.ServerHost, c.ServerPort)
}

// PostgresDSN is the key/value connection string for the postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
