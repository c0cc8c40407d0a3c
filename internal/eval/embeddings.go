package eval

import (
	"context"
	"fmt"
	"log"
)

// #region embeddings
// Encoder turns a goal label into its embedding.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingCache is where goal embeddings are kept between runs.
type EmbeddingCache interface {
	LoadEmbeddings() (map[string][]float32, error)
	SaveEmbedding(label string, vec []float32) error
}

// EnsureEmbeddings returns an embedding for every label, encoding and caching
// the ones the cache lacks. With force set every label is re-encoded.
func EnsureEmbeddings(ctx context.Context, cache EmbeddingCache, enc Encoder, labels []string, force bool) (map[string][]float32, error) {
	cached, err := cache.LoadEmbeddings()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]float32, len(labels))
	encoded := 0
	for _, label := range labels {
		if vec, ok := cached[label]; ok && !force {
			out[label] = vec
			continue
		}
		vec, err := enc.Embed(ctx, label)
		if err != nil {
			return nil, fmt.Errorf("embed %q: %w", label, err)
		}
		if len(vec) == 0 {
			return nil, fmt.Errorf("embed %q: empty embedding", label)
		}
		if err := cache.SaveEmbedding(label, vec); err != nil {
			return nil, err
		}
		out[label] = vec
		encoded++
	}
	log.Printf("[EVAL] embeddings: %d labels, %d encoded, %d cached", len(labels), encoded, len(labels)-encoded)
	return out, nil
}

// #endregion embeddings
