package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAddress        = ":8080"
	defaultThreshold      = 0.75
	defaultBatchSize      = 5
	defaultBatchDelay     = 100 * time.Millisecond
	defaultConcurrency    = 8
	defaultMaxClauseChars = 4000
	defaultMaxDocChars    = 10000
	defaultMaxObligChars  = 8000
	defaultLLMTimeout     = 60 * time.Second
	defaultProvider       = "openai"
	defaultCollection     = "clause_embeddings"
	defaultCachePath      = "./chromemdb"
	defaultDBDriver       = "pgdriver"
	defaultLogLevel       = "debug"
)

type Config struct {
	Server       ServerConfig      `yaml:"server"`
	EmbedLLM     LLMConfig         `yaml:"embed_llm"`
	InferenceLLM LLMConfig         `yaml:"inference_llm"`
	Compare      CompareConfig     `yaml:"compare"`
	Analysis     AnalysisConfig    `yaml:"analysis"`
	Obligations  ObligationsConfig `yaml:"obligations"`
	Cache        CacheConfig       `yaml:"cache"`
	Database     DatabaseConfig    `yaml:"database"`
	LogLevel     string            `yaml:"log_level"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
}

// LLMConfig describes one model endpoint. Provider is "openai" (any OpenAI compatible API) or "ollama".
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	BaseURL  string        `yaml:"base_url"`
	Key      string        `yaml:"key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

type CompareConfig struct {
	Threshold      float64       `yaml:"threshold"`
	BatchSize      int           `yaml:"batch_size"`
	BatchDelay     time.Duration `yaml:"batch_delay"`
	Concurrency    int           `yaml:"concurrency"`
	MaxClauseChars int           `yaml:"max_clause_chars"`
}

type AnalysisConfig struct {
	MaxDocumentChars int `yaml:"max_document_chars"`
}

// ObligationsConfig tunes obligation extraction. RulesOnly skips the model and uses
// keyword patterns alone.
type ObligationsConfig struct {
	MaxDocumentChars int  `yaml:"max_document_chars"`
	RulesOnly        bool `yaml:"rules_only"`
}

// CacheConfig describes the embedding cache. Reset empties the cached collection on startup.
type CacheConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	Collection    string `yaml:"collection"`
	InMemory      bool   `yaml:"in_memory"`
	EncryptionKey string `yaml:"encryption_key"`
	Reset         bool   `yaml:"reset"`
}

// DatabaseConfig describes the report archive. Reset drops the archive table on startup.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Driver   string `yaml:"driver"`
	Debug    bool   `yaml:"debug"`
	Reset    bool   `yaml:"reset"`
}

// LoadConfig reads a YAML config file. ${VAR} references are expanded from the environment.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	c.EmbedLLM.applyDefaults()
	c.InferenceLLM.applyDefaults()

	if c.Compare.Threshold == 0 {
		c.Compare.Threshold = defaultThreshold
	}
	if c.Compare.BatchSize <= 0 {
		c.Compare.BatchSize = defaultBatchSize
	}
	if c.Compare.BatchDelay == 0 {
		c.Compare.BatchDelay = defaultBatchDelay
	}
	if c.Compare.Concurrency == 0 {
		c.Compare.Concurrency = defaultConcurrency
	}
	if c.Compare.MaxClauseChars <= 0 {
		c.Compare.MaxClauseChars = defaultMaxClauseChars
	}
	if c.Analysis.MaxDocumentChars <= 0 {
		c.Analysis.MaxDocumentChars = defaultMaxDocChars
	}
	if c.Obligations.MaxDocumentChars <= 0 {
		c.Obligations.MaxDocumentChars = defaultMaxObligChars
	}
	if c.Cache.Path == "" {
		c.Cache.Path = defaultCachePath
	}
	if c.Cache.Collection == "" {
		c.Cache.Collection = defaultCollection
	}
	if c.Database.Driver == "" {
		c.Database.Driver = defaultDBDriver
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

func (l *LLMConfig) applyDefaults() {
	if l.Provider == "" {
		l.Provider = defaultProvider
	}
	if l.Timeout <= 0 {
		l.Timeout = defaultLLMTimeout
	}
}
