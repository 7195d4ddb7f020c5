package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIEmbedder uses any OpenAI-compatible embedding API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

// NewOpenAIEmbedder creates an embedder using an OpenAI-compatible API.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dims int) *OpenAIEmbedder {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	if dims == 0 {
		dims = 1536
	}
	var opts []option.RequestOption
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := openai.NewClient(opts...)
	return &OpenAIEmbedder{
		client: &client,
		model:  model,
		dims:   dims,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	src := resp.Data[0].Embedding
	v := make(Vector, len(src))
	for i, x := range src {
		v[i] = float32(x)
	}
	return v, nil
}

func (e *OpenAIEmbedder) Dims() int { return e.dims }
