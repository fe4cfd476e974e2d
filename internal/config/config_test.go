package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STR", "hello")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BOOL", "false")
	t.Setenv("TEST_DUR", "5s")

	assert.Equal(t, "hello", envStr("TEST_STR", "fallback"))
	assert.Equal(t, "fallback", envStr("TEST_STR_MISSING", "fallback"))
	assert.Equal(t, 42, envInt("TEST_INT", 0))
	assert.Equal(t, 99, envInt("TEST_INT_MISSING", 99))
	assert.False(t, envBool("TEST_BOOL", true))
	assert.Equal(t, 5*time.Second, envDuration("TEST_DUR", 0))
}

func TestEnvHelpersIgnoreMalformedValues(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	t.Setenv("TEST_BOOL_BAD", "maybe")
	t.Setenv("TEST_DUR_BAD", "five-seconds")

	assert.Equal(t, 7, envInt("TEST_INT_BAD", 7))
	assert.True(t, envBool("TEST_BOOL_BAD", true))
	assert.Equal(t, time.Minute, envDuration("TEST_DUR_BAD", time.Minute))
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "noop", cfg.EmbeddingProvider)
	assert.Equal(t, "heroarc", cfg.ServiceName)
	assert.EqualValues(t, 1*1024*1024, cfg.MaxRequestBodyBytes)
}

func TestLoadRejectsUnknownEmbeddingProvider(t *testing.T) {
	t.Setenv("HEROARC_EMBEDDING_PROVIDER", "openai")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HEROARC_EMBEDDING_PROVIDER")
}

func TestValidateBlobCredentials(t *testing.T) {
	t.Setenv("HEROARC_BLOB_ENDPOINT", "minio.local:9000")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HEROARC_BLOB_ACCESS_KEY")

	t.Setenv("HEROARC_BLOB_ACCESS_KEY", "key")
	t.Setenv("HEROARC_BLOB_SECRET_KEY", "secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "minio.local:9000", cfg.BlobEndpoint)
}
