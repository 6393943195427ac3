package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Prewarm    PrewarmConfig    `mapstructure:"prewarm"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	Mode      string          `mapstructure:"mode"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	// AllowedOrigins accepts exact origins and "*" wildcards,
	// e.g. chrome-extension://* or http://localhost:*.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	Enabled     bool  `mapstructure:"enabled"`
	WindowMs    int64 `mapstructure:"window_ms"`
	MaxRequests int64 `mapstructure:"max_requests"`
}

// Window returns the rate-limit window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMs) * time.Millisecond
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`   // sqlite file
	URL             string        `mapstructure:"url"`    // postgres DSN
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

type SimilarityConfig struct {
	Backend   string  `mapstructure:"backend"` // database, qdrant
	Threshold float64 `mapstructure:"threshold"`
	Limit     int     `mapstructure:"limit"`
}

type AnalysisConfig struct {
	MaxWords        int    `mapstructure:"max_words"`
	MaxTextLength   int    `mapstructure:"max_text_length"`
	DefaultLanguage string `mapstructure:"default_language"`
	EnableCaching   bool   `mapstructure:"enable_caching"`
	PreviewChars    int    `mapstructure:"preview_chars"`
}

type AnalyticsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // r2, s3, s3compatible
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

type PrewarmConfig struct {
	Workers   int    `mapstructure:"workers"`
	BatchSize int    `mapstructure:"batch_size"`
	Directory string `mapstructure:"directory"`
}

type AdminConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from an optional YAML file, .env and the environment.
// An empty configPath searches ./configs and the working directory for config.yaml.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Server.CORS.AllowedOrigins = splitList(cfg.Server.CORS.AllowedOrigins)
	cfg.Analysis.DefaultLanguage = strings.ToLower(cfg.Analysis.DefaultLanguage)
	cfg.Embedding.ResolveEnvVars()
	cfg.Classifier.ResolveEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors.allowed_origins", []string{
		"chrome-extension://*", "http://localhost:*", "http://127.0.0.1:*",
	})
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.window_ms", 60000)
	v.SetDefault("server.rate_limit.max_requests", 30)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/readlearn.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "article_embeddings")

	v.SetDefault("similarity.backend", "database")
	v.SetDefault("similarity.threshold", 0.90)
	v.SetDefault("similarity.limit", 1)

	v.SetDefault("embedding.provider", "jina")
	v.SetDefault("embedding.model", "jina-embeddings-v3")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("embedding.max_input_chars", 512)
	v.SetDefault("embedding.timeout", 15*time.Second)

	v.SetDefault("classifier.provider", "anthropic")
	v.SetDefault("classifier.model", "claude-haiku-4-5-20251001")
	v.SetDefault("classifier.max_tokens", 512)
	v.SetDefault("classifier.definition_max_tokens", 150)
	v.SetDefault("classifier.batch_max_tokens", 800)
	v.SetDefault("classifier.input_price_per_million", 0.80)
	v.SetDefault("classifier.output_price_per_million", 4.00)
	v.SetDefault("classifier.timeout", 60*time.Second)
	v.SetDefault("classifier.validate_on_startup", true)

	v.SetDefault("analysis.max_words", 800)
	v.SetDefault("analysis.max_text_length", 50000)
	v.SetDefault("analysis.default_language", "fr")
	v.SetDefault("analysis.enable_caching", false)
	v.SetDefault("analysis.preview_chars", 500)

	v.SetDefault("analytics.enabled", false)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucket", "readlearn")

	v.SetDefault("prewarm.workers", 4)
	v.SetDefault("prewarm.batch_size", 20)
	v.SetDefault("prewarm.directory", "./data/prewarm")

	v.SetDefault("admin.enabled", false)
}

// bindEnv maps the flat environment names used by existing deployments.
func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.cors.allowed_origins", "ALLOWED_ORIGINS")
	v.BindEnv("server.rate_limit.window_ms", "RATE_LIMIT_WINDOW_MS")
	v.BindEnv("server.rate_limit.max_requests", "RATE_LIMIT_MAX_REQUESTS")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("redis.url", "REDIS_URL")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("similarity.backend", "SIMILARITY_BACKEND")
	v.BindEnv("embedding.api_key", "JINA_API_KEY")
	v.BindEnv("embedding.base_url", "EMBEDDING_BASE_URL")
	v.BindEnv("classifier.api_key", "CLAUDE_API_KEY")
	v.BindEnv("classifier.base_url", "CLASSIFIER_BASE_URL")
	v.BindEnv("analysis.max_words", "MAX_TEXT_WORDS")
	v.BindEnv("analysis.max_text_length", "MAX_TEXT_LENGTH")
	v.BindEnv("analysis.enable_caching", "ENABLE_CACHING")
	v.BindEnv("analytics.enabled", "ENABLE_ANALYTICS")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
}

// splitList accepts both YAML lists and a single comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("database: url is required for postgres")
	}

	switch c.Similarity.Backend {
	case "database", "qdrant":
	default:
		return fmt.Errorf("similarity: unknown backend %q", c.Similarity.Backend)
	}
	if c.Similarity.Threshold < 0 || c.Similarity.Threshold >= 1 {
		return fmt.Errorf("similarity: threshold must be in [0, 1), got %v", c.Similarity.Threshold)
	}
	if c.Similarity.Limit < 1 {
		return fmt.Errorf("similarity: limit must be positive")
	}

	if c.Analysis.MaxWords < 10 {
		return fmt.Errorf("analysis: max_words must be at least 10, got %d", c.Analysis.MaxWords)
	}
	if c.Analysis.MaxTextLength < 10 {
		return fmt.Errorf("analysis: max_text_length must be at least 10")
	}

	if err := c.Embedding.Validate(); err != nil {
		return err
	}
	return c.Classifier.Validate()
}
