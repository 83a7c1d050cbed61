package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the cvindex service configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Collections CollectionsConfig `yaml:"collections"`
	Watch       WatchConfig       `yaml:"watch"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int `yaml:"max_upload_mb"`
}

// VectorStoreConfig selects and reaches the vector store backend.
type VectorStoreConfig struct {
	Backend          string   `yaml:"backend"` // redis, qdrant (default: redis)
	Host             string   `yaml:"host"`
	Port             int      `yaml:"port"` // 0 = backend default
	APIKey           string   `yaml:"api_key"`
	HTTPS            bool     `yaml:"https"`
	PreferGRPC       bool     `yaml:"prefer_grpc"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	FilterableFields []string `yaml:"filterable_fields"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// EmbeddingConfig holds embedding provider settings. An empty model disables
// embedding; the redis backend then indexes text only.
type EmbeddingConfig struct {
	Provider          string      `yaml:"provider"`
	APIKey            string      `yaml:"api_key"`
	BaseURL           string      `yaml:"base_url"`
	Model             string      `yaml:"model"`
	Dimensions        int         `yaml:"dimensions"`
	BatchSize         int         `yaml:"batch_size"`
	RequestsPerSecond float64     `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int         `yaml:"burst"`
	Cache             CacheConfig `yaml:"cache"`
}

// Enabled reports whether an embedder is configured.
func (e EmbeddingConfig) Enabled() bool { return e.Model != "" }

// CacheConfig holds the Redis embedding cache settings.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLHours int      `yaml:"ttl_hours"` // 0 = no expiry
}

// ChunkingConfig holds chunker budgets in characters.
type ChunkingConfig struct {
	Strategy      string `yaml:"strategy"` // sentences, words, fixed
	Size          int    `yaml:"size"`
	Overlap       int    `yaml:"overlap"`
	WordsPerChunk int    `yaml:"words_per_chunk"`
}

// CollectionsConfig names the collections ingestion writes to.
type CollectionsConfig struct {
	Personal        string `yaml:"personal"`
	Projects        string `yaml:"projects"`
	RecreateOnStart bool   `yaml:"recreate_on_start"`
}

// WatchConfig holds inbox watcher settings. An empty dir disables the watcher.
type WatchConfig struct {
	Dir        string `yaml:"dir"`
	DebounceMs int    `yaml:"debounce_ms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory is loaded into the environment first.
func Load(env string) (Config, error) {
	if fileExists(".env") {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 20
	}
	if c.VectorStore.Backend == "" {
		c.VectorStore.Backend = "redis"
	}
	if c.VectorStore.Host == "" {
		c.VectorStore.Host = "localhost"
	}
	if c.VectorStore.ReadinessTimeout <= 0 {
		c.VectorStore.ReadinessTimeout = 10
	}
	if c.VectorStore.FilterableFields == nil {
		c.VectorStore.FilterableFields = []string{
			"CV_id", "name", "level", "roles", "education", "languages", "domains", "project_name",
		}
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 256
	}
	if c.Embedding.Burst <= 0 {
		c.Embedding.Burst = 1
	}
	if c.Chunking.Strategy == "" {
		c.Chunking.Strategy = "sentences"
	}
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = 1000
	}
	if c.Chunking.WordsPerChunk <= 0 {
		c.Chunking.WordsPerChunk = 200
	}
	if c.Collections.Personal == "" {
		c.Collections.Personal = "cv_personal_info"
	}
	if c.Collections.Projects == "" {
		c.Collections.Projects = "cv_projects"
	}
	if c.Watch.DebounceMs <= 0 {
		c.Watch.DebounceMs = 500
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.VectorStore.Port < 0 || c.VectorStore.Port > 65535 {
		return fmt.Errorf("vector_store.port must be between 0 and 65535, got %d", c.VectorStore.Port)
	}
	switch c.VectorStore.Backend {
	case "redis":
	case "qdrant":
		if !c.Embedding.Enabled() {
			return fmt.Errorf("vector_store.backend qdrant requires embedding.model")
		}
	default:
		return fmt.Errorf("vector_store.backend must be \"redis\" or \"qdrant\", got %q", c.VectorStore.Backend)
	}
	if c.Embedding.Enabled() && c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive when embedding.model is set")
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.requests_per_second must not be negative")
	}
	if c.Embedding.Cache.Enabled && len(c.Embedding.Cache.Addrs) == 0 {
		return fmt.Errorf("embedding.cache.addrs is required when the cache is enabled")
	}
	switch c.Chunking.Strategy {
	case "sentences", "words", "fixed":
	default:
		return fmt.Errorf("chunking.strategy must be sentences, words or fixed, got %q", c.Chunking.Strategy)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap %d must be in [0, chunking.size %d)",
			c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Collections.Personal == c.Collections.Projects {
		return fmt.Errorf("collections.personal and collections.projects must differ")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
