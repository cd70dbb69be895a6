// Package openai embeds text through the OpenAI embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-3-small"

// Known output dimensions per model.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Options configures the embedder.
type Options struct {
	// APIKey authenticates against the OpenAI API. Required.
	APIKey string

	// Model selects the embedding model. Defaults to DefaultModel.
	Model string

	// BaseURL overrides the API endpoint, for proxies and compatible
	// servers. Optional.
	BaseURL string

	// Dimension overrides the reported output dimension, for compatible
	// servers whose models are not in the known table. Optional.
	Dimension int
}

// Embedder calls the OpenAI embeddings endpoint.
type Embedder struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewEmbedder creates an embedder from the given options.
func NewEmbedder(opts Options) (*Embedder, error) {
	if opts.APIKey == "" {
		return nil, errors.New("api key is required")
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	dim := opts.Dimension
	if dim == 0 {
		dim = modelDimensions[model]
	}
	if dim <= 0 {
		return nil, fmt.Errorf("unknown model %q: dimension must be set explicitly", model)
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &Embedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		dimension: dim,
	}, nil
}

// Embed returns the embedding vector for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	rsp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding in response")
	}

	return rsp.Data[0].Embedding, nil
}

// Dimension returns the output dimension of the configured model.
func (e *Embedder) Dimension() int {
	return e.dimension
}
