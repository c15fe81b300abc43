// Package verify implements the claim verification pipeline: chunk the
// cited source PDF, embed the chunks, retrieve the most similar ones, and
// ask the LLM to adjudicate the claim against those excerpts.
package verify

import (
	"context"
	"fmt"
	"math"
	"sync"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Embedder turns texts into L2-normalized vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderConfig points at an OpenAI-compatible embeddings endpoint
// serving the configured sentence-embedding model.
type EmbedderConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

// NewOpenAIEmbedder builds the embedding client.
func NewOpenAIEmbedder(cfg EmbedderConfig) *OpenAIEmbedder {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIEmbedder{client: openai.NewClient(opts...), model: cfg.Model}
}

// Embed encodes texts into normalized float32 vectors, row-aligned with the
// input.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(resp.Data))
	for i, row := range resp.Data {
		vec := make([]float32, len(row.Embedding))
		for j, v := range row.Embedding {
			vec[j] = float32(v)
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}

// LazyEmbedder defers construction until first use and is safe for
// concurrent callers. It mirrors the process-wide singleton lifecycle: the
// server creates one instance and closes it on shutdown.
type LazyEmbedder struct {
	cfg  EmbedderConfig
	once sync.Once
	emb  Embedder
}

// NewLazyEmbedder wraps the config without touching the network.
func NewLazyEmbedder(cfg EmbedderConfig) *LazyEmbedder {
	return &LazyEmbedder{cfg: cfg}
}

// Embed initializes the underlying embedder on first call.
func (l *LazyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	l.once.Do(func() {
		l.emb = NewOpenAIEmbedder(l.cfg)
	})
	return l.emb.Embed(ctx, texts)
}

// Close releases the embedder. The HTTP-backed implementation holds no
// state, so this only resets the slot.
func (l *LazyEmbedder) Close() {
	l.emb = nil
}
