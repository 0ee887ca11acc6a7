// Package config loads the gateway configuration once at start-up.
//
// Values come from the process environment, optionally seeded from a .env file, and are validated
// before use. The resulting Config is never mutated and is passed explicitly to each component.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrConfiguration = errors.New("configuration error")

const (
	BackendHuggingFace = "huggingface"
	BackendOpenAI      = "openai"
	BackendGemini      = "gemini"
	BackendQdrant      = "qdrant"
	BackendOpenSearch  = "opensearch"
	BackendChromem     = "chromem"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Vector    VectorConfig    `mapstructure:"vector"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

type LLMConfig struct {
	Temperature    float32        `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout        time.Duration  `mapstructure:"timeout" validate:"gt=0"`
	DirectProvider string         `mapstructure:"direct_provider" validate:"oneof=openai gemini"`
	OpenRouter     ProviderConfig `mapstructure:"openrouter"`
	OpenAI         ProviderConfig `mapstructure:"openai"`
	Gemini         ProviderConfig `mapstructure:"gemini"`
}

// ProviderConfig describes one remote chat provider. An empty APIKey leaves it out of the chain.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	Model   string `mapstructure:"model" validate:"required"`
}

func (p ProviderConfig) Configured() bool {
	return p.APIKey != ""
}

type EmbeddingConfig struct {
	Backend     string            `mapstructure:"backend" validate:"oneof=huggingface openai"`
	Timeout     time.Duration     `mapstructure:"timeout" validate:"gt=0"`
	HuggingFace HuggingFaceConfig `mapstructure:"huggingface"`
	OpenAI      OpenAIEmbedConfig `mapstructure:"openai"`
}

type HuggingFaceConfig struct {
	APIKey string `mapstructure:"api_key"`
	URL    string `mapstructure:"url" validate:"omitempty,url"`
	Model  string `mapstructure:"model" validate:"required"`
}

type OpenAIEmbedConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	Model   string `mapstructure:"model" validate:"required"`
}

// Configured reports whether the selected embedding backend has a credential or a dedicated endpoint.
func (e EmbeddingConfig) Configured() bool {
	switch e.Backend {
	case BackendHuggingFace:
		return e.HuggingFace.APIKey != "" || e.HuggingFace.URL != ""
	case BackendOpenAI:
		return e.OpenAI.APIKey != ""
	default:
		return false
	}
}

type VectorConfig struct {
	Backend    string           `mapstructure:"backend" validate:"oneof=qdrant opensearch chromem"`
	TopK       int              `mapstructure:"top_k" validate:"min=1"`
	Timeout    time.Duration    `mapstructure:"timeout" validate:"gt=0"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Chromem    ChromemConfig    `mapstructure:"chromem"`
}

type QdrantConfig struct {
	URL        string `mapstructure:"url" validate:"omitempty,url"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection" validate:"required"`
	VectorName string `mapstructure:"vector_name"`
}

type OpenSearchConfig struct {
	URL      string `mapstructure:"url" validate:"omitempty,url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Index    string `mapstructure:"index" validate:"required"`
	Insecure bool   `mapstructure:"insecure"`
}

type ChromemConfig struct {
	Path       string `mapstructure:"path"`
	Collection string `mapstructure:"collection" validate:"required"`
}

// Configured reports whether the selected vector backend has somewhere to send queries.
func (v VectorConfig) Configured() bool {
	switch v.Backend {
	case BackendQdrant:
		return v.Qdrant.URL != ""
	case BackendOpenSearch:
		return v.OpenSearch.URL != ""
	case BackendChromem:
		return v.Chromem.Path != ""
	default:
		return false
	}
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to read .env file: %v", ErrConfiguration, err)
		}
		slog.Debug("no .env file found, using process environment")
	}
	return FromViper(viper.New())
}

// FromViper binds the known environment names onto v and decodes them over the defaults.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cfg, nil
}
