// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Book, Indexer, Search, Store, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Book     BookConfig     `yaml:"book"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Store    StoreConfig    `yaml:"store"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	CORS     CORSConfig     `yaml:"cors"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	// SlowQuery is the search latency above which span trees log at warn.
	SlowQuery time.Duration `yaml:"slowQuery"`
	// RateLimit is requests per minute per client IP. Zero disables it.
	RateLimit int `yaml:"rateLimit"`
}

// BookConfig describes the markdown book the indexer reads.
type BookConfig struct {
	Name                string   `yaml:"name"`
	SourceDir           string   `yaml:"sourceDir"`
	SummaryFile         string   `yaml:"summaryFile"`
	Include             []string `yaml:"include"`
	Exclude             []string `yaml:"exclude"`
	HeadingSplitLevel   int      `yaml:"headingSplitLevel"`
	BreadcrumbSeparator string   `yaml:"breadcrumbSeparator"`
	Concurrency         int      `yaml:"concurrency"`
}

// IndexerConfig controls where artifacts go and when rebuilds run.
type IndexerConfig struct {
	// Format is "js" (searchindex.js wrapper) or "json".
	Format      string `yaml:"format"`
	ArtifactKey string `yaml:"artifactKey"`
	// Schedule is a five-field cron expression; empty means build once.
	Schedule string `yaml:"schedule"`
	// Force rebuilds and publishes even when the fingerprint is unchanged.
	Force bool `yaml:"force"`
}

// SearchConfig holds the defaults stamped into every built index and the
// limits the searcher enforces at query time.
type SearchConfig struct {
	Bool            string             `yaml:"bool"`
	Expand          bool               `yaml:"expand"`
	Boosts          map[string]float64 `yaml:"boosts"`
	LimitResults    int                `yaml:"limitResults"`
	TeaserWordCount int                `yaml:"teaserWordCount"`
	MaxLimit        int                `yaml:"maxLimit"`
	Books           []string           `yaml:"books"`
	ReloadInterval  time.Duration      `yaml:"reloadInterval"`
}

// StoreConfig selects the artifact store backend.
type StoreConfig struct {
	Type  string           `yaml:"type"`
	Local LocalStoreConfig `yaml:"local"`
	S3    S3StoreConfig    `yaml:"s3"`
}

// LocalStoreConfig stores artifacts under a directory.
type LocalStoreConfig struct {
	Dir string `yaml:"dir"`
}

// S3StoreConfig stores artifacts in an S3-compatible bucket.
type S3StoreConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UsePathStyle    bool   `yaml:"usePathStyle"`
}

// PostgresConfig holds PostgreSQL connection parameters. An empty Host
// disables the build registry.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// Enabled reports whether a database is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. No brokers disables
// event publishing and live reloads.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexBuilt      string `yaml:"indexBuilt"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// leaves only the in-process cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// CacheConfig sizes the in-process query cache.
type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// CORSConfig controls which origins may call the search API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
	MaxAge         int      `yaml:"maxAge"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the indexer or searcher cannot run with.
func (c *Config) Validate() error {
	switch strings.ToUpper(c.Search.Bool) {
	case "OR", "AND":
	default:
		return fmt.Errorf("search.bool must be OR or AND, got %q", c.Search.Bool)
	}
	if c.Search.LimitResults <= 0 {
		return fmt.Errorf("search.limitResults must be positive, got %d", c.Search.LimitResults)
	}
	if c.Search.MaxLimit > 0 && c.Search.LimitResults > c.Search.MaxLimit {
		return fmt.Errorf("search.limitResults %d exceeds search.maxLimit %d", c.Search.LimitResults, c.Search.MaxLimit)
	}
	if c.Search.TeaserWordCount <= 0 {
		return fmt.Errorf("search.teaserWordCount must be positive, got %d", c.Search.TeaserWordCount)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative, got %d", c.Server.RateLimit)
	}
	for field, boost := range c.Search.Boosts {
		if boost < 0 {
			return fmt.Errorf("search.boosts.%s must not be negative", field)
		}
	}
	if c.Book.HeadingSplitLevel < 1 || c.Book.HeadingSplitLevel > 6 {
		return fmt.Errorf("book.headingSplitLevel must be between 1 and 6, got %d", c.Book.HeadingSplitLevel)
	}
	switch c.Indexer.Format {
	case "js", "json":
	default:
		return fmt.Errorf("indexer.format must be js or json, got %q", c.Indexer.Format)
	}
	switch c.Store.Type {
	case "local":
		if c.Store.Local.Dir == "" {
			return fmt.Errorf("store.local.dir is required for the local store")
		}
	case "s3":
		if c.Store.S3.Bucket == "" {
			return fmt.Errorf("store.s3.bucket is required for the s3 store")
		}
	default:
		return fmt.Errorf("unknown store type %q", c.Store.Type)
	}
	return nil
}

// defaultConfig returns a Config that builds and serves a book from the
// working directory without any external infrastructure.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  5 * time.Second,
			SlowQuery:       250 * time.Millisecond,
		},
		Book: BookConfig{
			Name:                "book",
			SourceDir:           "src",
			SummaryFile:         "SUMMARY.md",
			Include:             []string{"**/*.md"},
			HeadingSplitLevel:   3,
			BreadcrumbSeparator: " » ",
			Concurrency:         4,
		},
		Indexer: IndexerConfig{
			Format:      "js",
			ArtifactKey: "searchindex.js",
		},
		Search: SearchConfig{
			Bool:   "OR",
			Expand: true,
			Boosts: map[string]float64{
				"title":       2,
				"body":        1,
				"breadcrumbs": 1,
			},
			LimitResults:    30,
			TeaserWordCount: 30,
			MaxLimit:        100,
		},
		Store: StoreConfig{
			Type:  "local",
			Local: LocalStoreConfig{Dir: "book"},
			S3:    S3StoreConfig{Region: "us-east-1"},
		},
		Postgres: PostgresConfig{
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "docsearch-searcher",
			Topics: KafkaTopics{
				IndexBuilt:      "index.built",
				AnalyticsEvents: "search.analytics",
			},
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Cache: CacheConfig{
			Size: 1024,
			TTL:  30 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			MaxAge:         300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DS_SERVER_RATE_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = limit
		}
	}
	if v := os.Getenv("DS_BOOK_NAME"); v != "" {
		cfg.Book.Name = v
	}
	if v := os.Getenv("DS_BOOK_SOURCE_DIR"); v != "" {
		cfg.Book.SourceDir = v
	}
	if v := os.Getenv("DS_INDEXER_SCHEDULE"); v != "" {
		cfg.Indexer.Schedule = v
	}
	if v := os.Getenv("DS_SEARCH_BOOKS"); v != "" {
		cfg.Search.Books = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_STORE_TYPE"); v != "" {
		cfg.Store.Type = v
	}
	if v := os.Getenv("DS_STORE_LOCAL_DIR"); v != "" {
		cfg.Store.Local.Dir = v
	}
	if v := os.Getenv("DS_STORE_S3_ENDPOINT"); v != "" {
		cfg.Store.S3.Endpoint = v
	}
	if v := os.Getenv("DS_STORE_S3_BUCKET"); v != "" {
		cfg.Store.S3.Bucket = v
	}
	if v := os.Getenv("DS_STORE_S3_ACCESS_KEY_ID"); v != "" {
		cfg.Store.S3.AccessKeyID = v
	}
	if v := os.Getenv("DS_STORE_S3_SECRET_ACCESS_KEY"); v != "" {
		cfg.Store.S3.SecretAccessKey = v
	}
	if v := os.Getenv("DS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
