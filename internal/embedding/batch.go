package embedding

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/models"
)

// Batcher wraps an Embedder and enforces the embedding contract: requests are
// issued in batches of at most batchSize with at most maxConcurrency batches
// in flight, output preserves input length and order, and every vector must
// have the configured dimensionality with no NaN components. A bad element
// fails its whole batch; partially-embedded batches are never accepted, so a
// chunk is never indexed without a vector.
type Batcher struct {
	inner          Embedder
	batchSize      int
	maxConcurrency int
}

// NewBatcher wraps inner with batching and output validation.
func NewBatcher(inner Embedder, batchSize, maxConcurrency int) *Batcher {
	if batchSize <= 0 {
		batchSize = 64
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Batcher{inner: inner, batchSize: batchSize, maxConcurrency: maxConcurrency}
}

// Embed embeds a single text and validates the result.
func (b *Batcher) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := b.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
	}
	if err := b.validate(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch embeds texts, same length and order as the input. Batches are
// dispatched concurrently up to the configured limit.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxConcurrency)
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end
		g.Go(func() error {
			vecs, err := b.inner.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("%w: batch [%d,%d): %v", models.ErrEmbeddingUnavailable, start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("%w: batch [%d,%d): got %d vectors for %d texts",
					models.ErrEmbeddingUnavailable, start, end, len(vecs), end-start)
			}
			for i, vec := range vecs {
				if err := b.validate(vec); err != nil {
					return fmt.Errorf("batch [%d,%d) element %d: %w", start, end, i, err)
				}
				out[start+i] = vec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's dimensionality.
func (b *Batcher) Dimensions() int {
	return b.inner.Dimensions()
}

// Close closes the wrapped embedder.
func (b *Batcher) Close() error {
	return b.inner.Close()
}

func (b *Batcher) validate(vec []float32) error {
	if len(vec) != b.inner.Dimensions() {
		return fmt.Errorf("%w: got dimension %d, expected %d",
			models.ErrEmbeddingUnavailable, len(vec), b.inner.Dimensions())
	}
	for i, v := range vec {
		if math.IsNaN(float64(v)) {
			return fmt.Errorf("%w: NaN component at %d", models.ErrEmbeddingUnavailable, i)
		}
	}
	return nil
}
