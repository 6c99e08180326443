package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	OCR       OCRConfig       `mapstructure:"ocr"`
	Layout    LayoutConfig    `mapstructure:"layout"`
	Tagging   TaggingConfig   `mapstructure:"tagging"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
	// Upper bound for a whole analyze/recommend request, external calls included.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
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
	PublicURL string `mapstructure:"public_url"`
	// Key prefix for published artifacts (labeled corpus, index).
	ArtifactPrefix string `mapstructure:"artifact_prefix"`
	// Key prefix for cached asset images.
	AssetPrefix string `mapstructure:"asset_prefix"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type OCRConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Feature  string        `mapstructure:"feature"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LayoutConfig struct {
	ThresholdRatio float64 `mapstructure:"threshold_ratio"`
	MiddleLow      float64 `mapstructure:"middle_low"`
	MiddleHigh     float64 `mapstructure:"middle_high"`
}

type TaggingConfig struct {
	CheckpointPath string        `mapstructure:"checkpoint_path"`
	AuditLogPath   string        `mapstructure:"audit_log_path"`
	OutputPath     string        `mapstructure:"output_path"`
	SaveEvery      int           `mapstructure:"save_every"`
	RateLimitCalls int           `mapstructure:"rate_limit_calls"`
	RateLimitPause time.Duration `mapstructure:"rate_limit_pause"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	Store          string        `mapstructure:"store"` // file, redis
	BlocklistPath  string        `mapstructure:"blocklist_path"`
}

type RetrievalConfig struct {
	TopK      int    `mapstructure:"top_k"`
	Backend   string `mapstructure:"backend"` // flat, qdrant, none
	IndexPath string `mapstructure:"index_path"`
}

type CorpusConfig struct {
	Path         string `mapstructure:"path"`
	AssetBaseURL string `mapstructure:"asset_base_url"`
	AssetExt     string `mapstructure:"asset_ext"`
}

// Load reads configuration from file, .env and environment, in that order of
// increasing precedence.
// Parameters:
//   - configPath: explicit config file; empty searches ./configs and . for config.yaml.
//
// Returns:
//   - *Config: populated and validated configuration.
//   - error: non-nil if the file is unreadable or a value is invalid.
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

	// Secrets and deployment endpoints
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("llm.api_key", "LLM_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("llm.base_url", "LLM_BASE_URL")
	v.BindEnv("llm.model", "LLM_MODEL")
	v.BindEnv("embedding.api_key", "EMBEDDING_API_KEY", "JINA_API_KEY")
	v.BindEnv("ocr.api_key", "GOOGLE_VISION_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.request_timeout", 90*time.Second)
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/mygoreply.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "mygo_lines")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "mygoreply")
	v.SetDefault("storage.artifact_prefix", "artifacts")
	v.SetDefault("storage.asset_prefix", "assets")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "mygoreply:tagging")

	v.SetDefault("llm.provider", "resty")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-004")
	v.SetDefault("embedding.base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("embedding.dimensions", 768)

	v.SetDefault("ocr.endpoint", "https://vision.googleapis.com/v1/images:annotate")
	v.SetDefault("ocr.feature", "DOCUMENT_TEXT_DETECTION")
	v.SetDefault("ocr.timeout", 30*time.Second)

	v.SetDefault("layout.threshold_ratio", 0.5)
	v.SetDefault("layout.middle_low", 0.4)
	v.SetDefault("layout.middle_high", 0.6)

	v.SetDefault("tagging.checkpoint_path", "./data/checkpoint.json")
	v.SetDefault("tagging.audit_log_path", "./data/log.csv")
	v.SetDefault("tagging.output_path", "./data/mygo_labeled.json")
	v.SetDefault("tagging.save_every", 25)
	v.SetDefault("tagging.rate_limit_calls", 100)
	v.SetDefault("tagging.rate_limit_pause", 60*time.Second)
	v.SetDefault("tagging.max_retries", 3)
	v.SetDefault("tagging.retry_delay", 3*time.Second)
	v.SetDefault("tagging.store", "file")

	v.SetDefault("retrieval.top_k", 20)
	v.SetDefault("retrieval.backend", "flat")
	v.SetDefault("retrieval.index_path", "./data/mygo.index")

	v.SetDefault("corpus.path", "./data/mygo_labeled.json")
	v.SetDefault("corpus.asset_base_url", "https://mypic.0m0.uk/images")
	v.SetDefault("corpus.asset_ext", "webp")
}

// Validate rejects values that would make the pipelines misbehave silently.
func (c *Config) Validate() error {
	l := c.Layout
	if l.ThresholdRatio <= 0 || l.ThresholdRatio >= 1 {
		return fmt.Errorf("layout.threshold_ratio must be in (0,1), got %v", l.ThresholdRatio)
	}
	if l.MiddleLow < 0 || l.MiddleHigh > 1 || l.MiddleLow >= l.MiddleHigh {
		return fmt.Errorf("layout middle band [%v,%v] is invalid", l.MiddleLow, l.MiddleHigh)
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("corpus.path is required")
	}
	if c.Tagging.SaveEvery <= 0 {
		return fmt.Errorf("tagging.save_every must be positive")
	}
	if c.Tagging.MaxRetries <= 0 {
		return fmt.Errorf("tagging.max_retries must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	switch c.Tagging.Store {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown tagging.store %q", c.Tagging.Store)
	}
	switch c.Retrieval.Backend {
	case "flat", "qdrant", "none":
	default:
		return fmt.Errorf("unknown retrieval.backend %q", c.Retrieval.Backend)
	}
	return nil
}
