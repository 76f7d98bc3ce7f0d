package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lostfound-cloud/matcher/internal/domain/similarity"
)

// Config holds the matcher API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Matching  MatchingConfig  `yaml:"matching"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds item store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider and vectorizer settings.
// Text and Image are independent vectorizers; the image one is optional
// and the service runs text-only without it.
type EmbeddingConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Text      VectorizerConfig          `yaml:"text"`
	Image     VectorizerConfig          `yaml:"image"`
	Cache     CacheConfig               `yaml:"cache"`
}

// ProviderConfig holds one OpenAI-compatible endpoint's settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig binds a model to a provider.
type VectorizerConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// Configured reports whether the vectorizer is set up.
func (v VectorizerConfig) Configured() bool {
	return v.Provider != "" && v.Model != ""
}

// CacheConfig holds embedding cache settings. Disabled by default:
// embeddings are deterministic, so caching only trades store writes for
// provider calls.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	TTLHours int  `yaml:"ttl_hours"`
}

// MatchingConfig holds the scoring and scan settings.
type MatchingConfig struct {
	TextWeight           float64 `yaml:"text_weight"`
	ImageWeight          float64 `yaml:"image_weight"`
	MaxResults           int     `yaml:"max_results"`
	Workers              int     `yaml:"workers"`
	ImageFetchTimeoutSec int     `yaml:"image_fetch_timeout_sec"`
	MaxImageBytes        int64   `yaml:"max_image_bytes"`
}

// Weights returns the configured modality weights.
func (m MatchingConfig) Weights() similarity.Weights {
	return similarity.Weights{Text: m.TextWeight, Image: m.ImageWeight}
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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
		c.HTTP.ReadTimeoutSec = 15
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Match scans embed every candidate; give writes room.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Matching.TextWeight == 0 && c.Matching.ImageWeight == 0 {
		c.Matching.TextWeight = similarity.DefaultTextWeight
		c.Matching.ImageWeight = similarity.DefaultImageWeight
	}
	if c.Matching.MaxResults <= 0 {
		c.Matching.MaxResults = 20
	}
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = 8
	}
	if c.Matching.ImageFetchTimeoutSec <= 0 {
		c.Matching.ImageFetchTimeoutSec = 10
	}
	if c.Matching.MaxImageBytes <= 0 {
		c.Matching.MaxImageBytes = 10 << 20
	}
	if c.Embedding.Cache.TTLHours <= 0 {
		c.Embedding.Cache.TTLHours = 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if err := c.Matching.Weights().Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	if !c.Embedding.Text.Configured() {
		return fmt.Errorf("embedding.text vectorizer is required")
	}
	for _, v := range []struct {
		name string
		cfg  VectorizerConfig
	}{{"text", c.Embedding.Text}, {"image", c.Embedding.Image}} {
		if !v.cfg.Configured() {
			continue
		}
		if _, ok := c.Embedding.Providers[v.cfg.Provider]; !ok {
			return fmt.Errorf("embedding.%s references unknown provider %q", v.name, v.cfg.Provider)
		}
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
