package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultHost      = "0.0.0.0"
	DefaultPort      = 8000
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultTemperature    = 0.2
	DefaultLLMTimeout     = 30 * time.Second
	DefaultDirectProvider = BackendOpenAI

	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel   = "openai/gpt-4o-mini"
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
	DefaultOpenAIModel       = "gpt-4o-mini"
	DefaultGeminiModel       = "gemini-2.0-flash"

	DefaultEmbeddingBackend     = BackendHuggingFace
	DefaultEmbeddingTimeout     = 30 * time.Second
	DefaultSentenceModel        = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"

	DefaultVectorBackend = BackendQdrant
	DefaultTopK          = 3
	DefaultVectorTimeout = 15 * time.Second
	DefaultCollection    = "documents"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("llm.temperature", DefaultTemperature)
	v.SetDefault("llm.timeout", DefaultLLMTimeout)
	v.SetDefault("llm.direct_provider", DefaultDirectProvider)
	v.SetDefault("llm.openrouter.base_url", DefaultOpenRouterBaseURL)
	v.SetDefault("llm.openrouter.model", DefaultOpenRouterModel)
	v.SetDefault("llm.openai.base_url", DefaultOpenAIBaseURL)
	v.SetDefault("llm.openai.model", DefaultOpenAIModel)
	v.SetDefault("llm.gemini.model", DefaultGeminiModel)

	v.SetDefault("embedding.backend", DefaultEmbeddingBackend)
	v.SetDefault("embedding.timeout", DefaultEmbeddingTimeout)
	v.SetDefault("embedding.huggingface.model", DefaultSentenceModel)
	v.SetDefault("embedding.openai.base_url", DefaultOpenAIBaseURL)
	v.SetDefault("embedding.openai.model", DefaultOpenAIEmbeddingModel)

	v.SetDefault("vector.backend", DefaultVectorBackend)
	v.SetDefault("vector.top_k", DefaultTopK)
	v.SetDefault("vector.timeout", DefaultVectorTimeout)
	v.SetDefault("vector.qdrant.collection", DefaultCollection)
	v.SetDefault("vector.opensearch.index", DefaultCollection)
	v.SetDefault("vector.chromem.collection", DefaultCollection)
}

// envBindings maps config keys to environment names. Earlier names take precedence.
var envBindings = map[string][]string{
	"server.host": {"HOST"},
	"server.port": {"PORT"},
	"log.level":   {"LOG_LEVEL"},
	"log.format":  {"LOG_FORMAT"},

	"llm.temperature":         {"LLM_TEMPERATURE"},
	"llm.timeout":             {"LLM_TIMEOUT"},
	"llm.direct_provider":     {"DIRECT_PROVIDER"},
	"llm.openrouter.api_key":  {"OPENROUTER_API_KEY"},
	"llm.openrouter.base_url": {"OPENROUTER_BASE_URL"},
	"llm.openrouter.model":    {"OPENROUTER_MODEL"},
	"llm.openai.api_key":      {"OPENAI_API_KEY"},
	"llm.openai.base_url":     {"OPENAI_BASE_URL"},
	"llm.openai.model":        {"OPENAI_MODEL"},
	"llm.gemini.api_key":      {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"llm.gemini.model":        {"GEMINI_MODEL"},

	"embedding.backend":             {"EMBEDDING_BACKEND"},
	"embedding.timeout":             {"EMBEDDING_TIMEOUT"},
	"embedding.huggingface.api_key": {"HUGGINGFACE_API_KEY"},
	"embedding.huggingface.url":     {"HUGGINGFACE_API_URL"},
	"embedding.huggingface.model":   {"SENTENCE_MODEL", "HUGGINGFACE_MODEL"},
	"embedding.openai.api_key":      {"OPENAI_API_KEY"},
	"embedding.openai.base_url":     {"OPENAI_BASE_URL"},
	"embedding.openai.model":        {"OPENAI_EMBEDDING_MODEL"},

	"vector.backend":             {"VECTOR_BACKEND"},
	"vector.top_k":               {"RETRIEVAL_TOP_K", "QDRANT_TOP_K"},
	"vector.timeout":             {"VECTOR_TIMEOUT"},
	"vector.qdrant.url":          {"QDRANT_URL"},
	"vector.qdrant.api_key":      {"QDRANT_API_KEY"},
	"vector.qdrant.collection":   {"QDRANT_COLLECTION"},
	"vector.qdrant.vector_name":  {"QDRANT_VECTOR_NAME"},
	"vector.opensearch.url":      {"OPENSEARCH_URL"},
	"vector.opensearch.username": {"OPENSEARCH_USERNAME"},
	"vector.opensearch.password": {"OPENSEARCH_PASSWORD"},
	"vector.opensearch.index":    {"OPENSEARCH_INDEX"},
	"vector.opensearch.insecure": {"OPENSEARCH_INSECURE"},
	"vector.chromem.path":        {"CHROMEM_PATH"},
	"vector.chromem.collection":  {"CHROMEM_COLLECTION"},
}

func bindEnv(v *viper.Viper) error {
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return err
		}
	}
	return nil
}
