// Package embedding provides a pluggable interface for text embedding providers.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/agency1/hippocampus/internal/chunker"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// ErrEmptyEmbedding is returned when a provider answers without a vector.
var ErrEmptyEmbedding = errors.New("embedding: provider returned an empty vector")

// ErrInvalidEmbedding is returned when a provider vector holds NaN or Inf.
var ErrInvalidEmbedding = errors.New("embedding: provider returned a non-finite vector")

// CosineSimilarity computes cosine similarity between two vectors.
// It is 0 when either vector has zero norm, the lengths differ, or the result
// is not a finite number.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	return sim
}

// Finite reports whether every component of v is a finite number.
func Finite(v Vector) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Normalize returns v scaled to unit length. A zero vector is returned as is.
func Normalize(v Vector) Vector {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// EmbedText embeds text with e. Text that does not fit in one chunk is split
// and the chunk vectors are mean-pooled, so the result is always one vector.
// Vectors with non-finite components are rejected with ErrInvalidEmbedding.
func EmbedText(ctx context.Context, e Embedder, text string) (Vector, error) {
	chunks := chunker.Chunk(text, chunker.DefaultOptions())
	if len(chunks) <= 1 {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(v) == 0 {
			return nil, ErrEmptyEmbedding
		}
		if !Finite(v) {
			return nil, ErrInvalidEmbedding
		}
		return v, nil
	}

	var sum []float64
	for i, c := range chunks {
		v, err := e.Embed(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		if len(v) == 0 {
			return nil, ErrEmptyEmbedding
		}
		if !Finite(v) {
			return nil, fmt.Errorf("chunk %d: %w", i, ErrInvalidEmbedding)
		}
		if sum == nil {
			sum = make([]float64, len(v))
		}
		if len(v) != len(sum) {
			return nil, fmt.Errorf("chunk %d: dimension %d, expected %d", i, len(v), len(sum))
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}
	mean := make(Vector, len(sum))
	for j, x := range sum {
		mean[j] = float32(x / float64(len(chunks)))
	}
	mean = Normalize(mean)
	if !Finite(mean) {
		return nil, ErrInvalidEmbedding
	}
	return mean, nil
}

// --- Ollama Provider ---

// OllamaEmbedder uses a local Ollama instance for embeddings.
type OllamaEmbedder struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewOllamaEmbedder creates an embedder using Ollama's API.
// Default model: nomic-embed-text (768 dims), all-minilm (384 dims).
func NewOllamaEmbedder(baseURL, model string) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	dims := 768
	if model == "all-minilm" {
		dims = 384
	}
	return &OllamaEmbedder{
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	body, _ := json.Marshal(ollamaRequest{Model: e.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(b))
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Embedding, nil
}

func (e *OllamaEmbedder) Dims() int { return e.dims }

// --- Factory ---

// Config selects and tunes the embedding provider.
type Config struct {
	// Provider is "ollama", "openai", "hash" or "" (embeddings disabled).
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key"`
	Dims     int    `yaml:"dims"`

	// CacheSize bounds the number of cached query vectors. 0 disables the cache.
	CacheSize int `yaml:"cache_size"`

	// RateLimit is provider calls per second. 0 means unlimited.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	// BreakerFailures consecutive failures open the circuit for BreakerTimeout.
	// 0 disables the breaker.
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

// Providers lists the accepted Config.Provider values.
var Providers = map[string]bool{
	"":       true,
	"ollama": true,
	"openai": true,
	"hash":   true,
}

// NewFromConfig creates the base provider named by cfg.Provider.
// It returns nil, nil when embeddings are disabled.
func NewFromConfig(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "ollama":
		return NewOllamaEmbedder(cfg.URL, cfg.Model), nil
	case "openai":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIEmbedder(cfg.URL, key, cfg.Model, cfg.Dims), nil
	case "hash":
		return NewHashEmbedder(cfg.Dims), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
