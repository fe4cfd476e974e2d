// Package embedding provides vector embedding generation for similarity
// search over initiative and task text.
//
// The Provider interface allows swapping backends without changing
// consumers. The Ollama provider keeps embeddings on-premises; the noop
// provider disables the feature entirely.
package embedding

import (
	"context"
	"errors"

	"github.com/pgvector/pgvector-go"
)

// ErrDisabled is returned by the noop provider. Callers that can live
// without embeddings (create/update paths) skip on it; callers that
// cannot (similarity search) surface it to the client.
var ErrDisabled = errors.New("embedding: provider disabled")

// Provider generates vector embeddings from text.
type Provider interface {
	// Embed generates a single embedding vector from text.
	Embed(ctx context.Context, text string) (pgvector.Vector, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error)
}

// New constructs the provider named by the configuration. Unknown names
// fall back to the noop provider; config validation rejects them earlier.
func New(provider, ollamaURL, ollamaModel string) Provider {
	if provider == "ollama" {
		return NewOllamaProvider(ollamaURL, ollamaModel)
	}
	return NoopProvider{}
}

// NoopProvider disables embedding generation. Rows are stored without
// vectors and similarity search reports the feature as unavailable.
type NoopProvider struct{}

// Embed returns ErrDisabled.
func (NoopProvider) Embed(context.Context, string) (pgvector.Vector, error) {
	return pgvector.Vector{}, ErrDisabled
}

// EmbedBatch returns ErrDisabled.
func (NoopProvider) EmbedBatch(context.Context, []string) ([]pgvector.Vector, error) {
	return nil, ErrDisabled
}
