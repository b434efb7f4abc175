package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"document-diff/internal/config"
)

const (
	DefaultBatchSize = 5
)

// NewEmbedder creates the embedder described by cfg. Callers create it once and reuse it.
func NewEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	var client embeddings.EmbedderClient
	switch cfg.Provider {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama: %w", err)
		}
		client = llm
	case "openai", "":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai: %w", err)
		}
		client = llm
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// BatchOptions controls how clause texts are sent to the provider.
type BatchOptions struct {
	// Size is the number of texts per provider call.
	Size int
	// Delay is the minimum spacing between two provider calls.
	Delay time.Duration
	// Timeout bounds each provider call. Zero means no timeout.
	Timeout time.Duration
	// MaxChars truncates long texts before embedding. Zero keeps them whole.
	MaxChars int
}

// Batcher embeds texts in fixed-size batches, pausing between batches. One Batcher
// spaces every call it makes, so a comparison shares it across both documents.
type Batcher struct {
	embedder embeddings.Embedder
	opts     BatchOptions
	limiter  *rate.Limiter
}

func NewBatcher(embedder embeddings.Embedder, opts BatchOptions) *Batcher {
	if opts.Size <= 0 {
		opts.Size = DefaultBatchSize
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Delay), 1)
	}
	return &Batcher{embedder: embedder, opts: opts, limiter: limiter}
}

// Embed returns one vector per text, in input order. Any failed batch fails the call.
func (b *Batcher) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.opts.Size {
		end := min(start+b.opts.Size, len(texts))
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		batch := make([]string, 0, end-start)
		for _, t := range texts[start:end] {
			batch = append(batch, truncate(t, b.opts.MaxChars))
		}

		log.Debug().Int("from", start).Int("to", end-1).Int("total", len(texts)).Msg("Embedding batch")
		got, err := b.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end-1, err)
		}
		if len(got) != len(batch) {
			return nil, fmt.Errorf("batch %d-%d: provider returned %d vectors for %d texts", start, end-1, len(got), len(batch))
		}
		vectors = append(vectors, got...)
	}
	return vectors, nil
}

func (b *Batcher) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}
	return b.embedder.EmbedDocuments(ctx, batch)
}

// truncate keeps the leading words of content that fit in maxChars.
func truncate(content string, maxChars int) string {
	if maxChars <= 0 || len(content) <= maxChars {
		return content
	}
	head := strings.TrimSpace(chunkContent(content, maxChars)[0])
	if len(head) <= maxChars {
		return head
	}
	// a single word longer than maxChars
	cut := 0
	for i := range head {
		if i > maxChars {
			break
		}
		cut = i
	}
	return head[:cut]
}

func chunkContent(content string, maxChars int) []string {
	var chunks []string
	words := strings.Split(content, " ")
	var chunk strings.Builder
	for _, word := range words {
		if chunk.Len() > 0 && chunk.Len()+len(word)+1 > maxChars {
			chunks = append(chunks, chunk.String())
			chunk.Reset()
		}
		chunk.WriteString(word + " ")
	}
	if chunk.Len() > 0 {
		chunks = append(chunks, chunk.String())
	}
	return chunks
}
