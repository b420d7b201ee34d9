package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
)

// Config configures the TEI-backed (or any OpenAI-embeddings-compatible)
// client.
type Config struct {
	// BaseURL is the embedding server's base URL, e.g. a text-embeddings-inference
	// deployment's OpenAI-compatible endpoint.
	BaseURL string
	// Model names the embedding model served at BaseURL.
	Model string
	// APIKey is sent as a bearer token; most TEI deployments ignore it.
	APIKey string
	// Dim is this deployment's fixed embedding dimensionality (spec §6/§7).
	Dim int
}

// Validate reports whether cfg is usable.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("embeddings: base URL required")
	}
	if c.Dim <= 0 {
		return fmt.Errorf("embeddings: dimension must be positive")
	}
	return nil
}

// Service is an Embedder backed by an OpenAI-compatible embeddings
// endpoint, via langchaingo's client and embedder wrapper.
type Service struct {
	cfg      Config
	embedder *embeddings.EmbedderImpl
	metrics  *Metrics
}

// NewService builds a Service from cfg. metrics may be nil (no-op).
func NewService(cfg Config, metrics *Metrics) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("embeddings: construct client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("embeddings: construct embedder: %w", err)
	}

	if metrics == nil {
		metrics = NewNopMetrics()
	}
	return &Service{cfg: cfg, embedder: embedder, metrics: metrics}, nil
}

// Dimension returns this deployment's configured embedding size.
func (s *Service) Dimension() int { return s.cfg.Dim }

// embedRetryBackoff bounds the single retry's wait after a recoverable
// embedding failure (spec §7).
const embedRetryBackoff = 1 * time.Second

// EmbedQuery embeds a single piece of text, failing with
// EmbeddingUnavailable if the upstream endpoint errors. A failed call is
// retried at most once, after embedRetryBackoff.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := s.embedQueryWithRetry(ctx, text)
	s.metrics.RecordGeneration(ctx, s.cfg.Model, "embed_query", time.Since(start), 1, err)
	if err != nil {
		return nil, aidiserr.Wrap(aidiserr.KindEmbeddingUnavailable, "embedding service unavailable", err)
	}

	out := make([]float32, len(vec))
	copy(out, vec)
	if err := Validate(out, s.cfg.Dim); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) embedQueryWithRetry(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.EmbedQuery(ctx, text)
	if err == nil {
		return vec, nil
	}

	select {
	case <-ctx.Done():
		return nil, err
	case <-time.After(embedRetryBackoff):
	}
	return s.embedder.EmbedQuery(ctx, text)
}
