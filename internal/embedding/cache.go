package embedding

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-diff/internal/chromemdb"
)

// CachedEmbedder serves repeated clause texts from a vector store and only sends
// unseen texts to the wrapped embedder. Stored vectors are unit length, which leaves
// cosine similarity unchanged.
type CachedEmbedder struct {
	next  embeddings.Embedder
	store *chromemdb.VectorDBManager
	model string
}

var _ embeddings.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps next. model namespaces the cache keys so that switching
// embedding models never returns stale vectors.
func NewCachedEmbedder(next embeddings.Embedder, store *chromemdb.VectorDBManager, model string) *CachedEmbedder {
	return &CachedEmbedder{next: next, store: store, model: model}
}

func (c *CachedEmbedder) cacheID(text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(c.model+"\x00"+text)).String()
}

func (c *CachedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if doc, ok := c.store.GetByID(ctx, c.cacheID(text)); ok && len(doc.Embedding) > 0 {
			out[i] = doc.Embedding
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	log.Debug().Int("hits", len(texts)-len(missTexts)).Int("misses", len(missTexts)).Msg("Embedding cache lookup")
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.next.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(missTexts))
	}

	docs := make([]chromem.Document, 0, len(missTexts))
	seen := make(map[string]bool, len(missTexts))
	for j, idx := range missIdx {
		out[idx] = vectors[j]
		id := c.cacheID(missTexts[j])
		if seen[id] {
			continue
		}
		seen[id] = true
		docs = append(docs, chromem.Document{
			ID:        id,
			Content:   missTexts[j],
			Embedding: vectors[j],
		})
	}
	if err := c.store.CreateDocs(ctx, docs); err != nil {
		// a cache write failure never fails the embedding call
		log.Warn().Err(err).Msg("Error caching embeddings")
	}
	return out, nil
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
