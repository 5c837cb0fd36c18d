// Package embedding runs the background worker that turns newly
// captured observations and tool descriptions into vectors, and the
// thin client it uses to reach the embedding model.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/cenkalti/backoff/v4"
	"github.com/ollama/ollama/api"
)

// Model is the fixed embedding model name; its output dimension must
// match store.EmbeddingDim.
const Model = "all-minilm"

// Client wraps an Ollama API client with retry-on-model-load and the
// L2 normalization the cosine-distance vec0 index expects.
type Client struct {
	api *api.Client
}

// NewClient builds a Client from the environment (OLLAMA_HOST or the
// local default), matching how the host's own Ollama tooling resolves
// the server address.
func NewClient() (*Client, error) {
	c, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("laminark: build ollama client: %w", err)
	}
	return &Client{api: c}, nil
}

// Embed returns a normalized embedding for text, or nil if the model is
// not reachable after retrying. A nil result is not an error: callers
// treat it as "leave this row unembedded, try again next tick."
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32

	operation := func() error {
		resp, err := c.api.Embed(ctx, &api.EmbedRequest{Model: Model, Input: text})
		if err != nil {
			return err
		}
		if len(resp.Embeddings) == 0 {
			return fmt.Errorf("laminark: embed response carried no vectors")
		}
		vec = resp.Embeddings[0]
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, nil
	}

	return normalize(vec), nil
}

// normalize scales vec to unit L2 length. A zero vector is returned
// unchanged rather than dividing by zero.
func normalize(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sumSquares))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
