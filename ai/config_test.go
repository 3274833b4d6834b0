package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:9300", cfg.RerankHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "cross-encoder/ms-marco-MiniLM-L-6-v2", cfg.RerankModel)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:9300", cfg.RerankHost)
	})

	t.Run("with custom hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed.internal:8080"),
			WithRerankHost("http://rerank.internal:8081/"),
		)

		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://embed.internal:8080/v1", cfg.EmbeddingHost,
			"embedding host should gain the /v1 suffix")
		assert.Equal(t, "http://rerank.internal:8081", cfg.RerankHost,
			"rerank host should lose the trailing slash")
	})

	t.Run("with custom models", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithRerankModel("jina-reranker-v2-base-multilingual"),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "jina-reranker-v2-base-multilingual", cfg.RerankModel)
	})

	t.Run("with api key", func(t *testing.T) {
		cfg := NewConfig(WithAPIKey("secret"))

		assert.Equal(t, "secret", cfg.APIKey)
	})
}

func TestNormalizeIdempotent(t *testing.T) {
	cfg := NewConfig(WithEmbeddingHost("http://localhost:11434/v1"))
	cfg.Normalize()
	cfg.Normalize()

	assert.Equal(t, 1, strings.Count(cfg.EmbeddingHost, "/v1"))
}

func TestValidateMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty embedding host", func(c *Config) { c.EmbeddingHost = "" }},
		{"empty embedding model", func(c *Config) { c.EmbeddingModel = "" }},
		{"empty rerank host", func(c *Config) { c.RerankHost = "" }},
		{"empty rerank model", func(c *Config) { c.RerankModel = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
