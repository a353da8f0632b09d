package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	ASR      ASRConfig
	Ollama   OllamaConfig
	Summary  SummaryConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string `envconfig:"PORT" default:"8080"`
	Host            string `envconfig:"HOST" default:"0.0.0.0"`
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name        string `envconfig:"DB_NAME" default:"protokol"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     string `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// StorageConfig holds object storage configuration for source recordings
type StorageConfig struct {
	Endpoint        string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretAccessKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	BucketName      string `envconfig:"STORAGE_BUCKET" default:"recordings"`
	UseSSL          bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

// ASRConfig holds segmentation and transcription service configuration
type ASRConfig struct {
	SegmenterURL   string        `envconfig:"ASR_SEGMENTER_URL" default:"http://localhost:9100"`
	TranscriberURL string        `envconfig:"ASR_TRANSCRIBER_URL" default:"http://localhost:9200"`
	Timeout        time.Duration `envconfig:"ASR_TIMEOUT" default:"10m"`
}

// OllamaConfig holds LLM and embedding service configuration
type OllamaConfig struct {
	URL            string        `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	ChatModel      string        `envconfig:"OLLAMA_CHAT_MODEL" default:"qwen2.5:14b"`
	EmbeddingModel string        `envconfig:"OLLAMA_EMBEDDING_MODEL" default:"nomic-embed-text"`
	ConnectTimeout time.Duration `envconfig:"OLLAMA_CONNECT_TIMEOUT" default:"30s"`
	ReadTimeout    time.Duration `envconfig:"OLLAMA_READ_TIMEOUT" default:"3m"`
	KeepAlive      string        `envconfig:"OLLAMA_KEEP_ALIVE" default:"30m"`
	NumCtx         int           `envconfig:"OLLAMA_NUM_CTX" default:"8192"`
}

// SummaryConfig holds the batching/retrieval/refinement budgets
type SummaryConfig struct {
	ChunkCharLimit     int     `envconfig:"RAG_CHUNK_CHAR_LIMIT" default:"6000"`
	TopK               int     `envconfig:"RAG_TOP_K" default:"5"`
	MinScore           float64 `envconfig:"RAG_MIN_SCORE" default:"0.35"`
	EmbedWindowChars   int     `envconfig:"RAG_EMBED_WINDOW_CHARS" default:"4000"`
	MaxRefsChars       int     `envconfig:"MAX_REFS_CHARS" default:"3000"`
	MaxDraftChars      int     `envconfig:"MAX_DRAFT_CHARS" default:"8000"`
	MaxFinalDraftChars int     `envconfig:"MAX_FINAL_DRAFT_CHARS" default:"12000"`
	TimeBuckets        int     `envconfig:"GLOBAL_REF_TIME_BUCKETS" default:"10"`
	PerBucket          int     `envconfig:"GLOBAL_REF_PER_BUCKET" default:"2"`
	NumPredictBatch    int     `envconfig:"SUMMARIZE_NUM_PREDICT_BATCH" default:"256"`
	NumPredictFinal    int     `envconfig:"SUMMARIZE_NUM_PREDICT_FINAL" default:"512"`
	Temperature        float64 `envconfig:"SUMMARIZE_TEMPERATURE" default:"0.2"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Summary.ChunkCharLimit <= 0 {
		return fmt.Errorf("RAG_CHUNK_CHAR_LIMIT must be positive")
	}
	if c.Summary.TopK <= 0 {
		return fmt.Errorf("RAG_TOP_K must be positive")
	}
	if c.Summary.TimeBuckets <= 0 || c.Summary.PerBucket <= 0 {
		return fmt.Errorf("global reference bucket settings must be positive")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
