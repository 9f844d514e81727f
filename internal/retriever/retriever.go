// Package retriever runs hybrid retrieval: a lexical and a vector search
// issued concurrently against the store, joined before fusion.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/store"
)

// Searcher is the read side of the store consumed by the retriever.
type Searcher interface {
	SearchLexical(ctx context.Context, query string, k int) ([]store.Hit, error)
	SearchVector(ctx context.Context, vec []float32, k int) ([]store.Hit, error)
}

// Retriever issues hybrid searches.
type Retriever struct {
	store    Searcher
	embedder embedding.Embedder
}

// New creates a retriever over the given store and embedder.
func New(s Searcher, e embedding.Embedder) *Retriever {
	return &Retriever{store: s, embedder: e}
}

// Retrieve returns the lexical and vector candidate lists for query, each
// capped at k and ranked by descending score with chunk-ID tie-breaks. The
// two searches run concurrently. A store failure is surfaced as
// ErrRetrievalUnavailable, never as a silently empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (lexical, vector []store.Hit, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.store.SearchLexical(gctx, query, k)
		if err != nil {
			return fmt.Errorf("%w: lexical search: %v", models.ErrRetrievalUnavailable, err)
		}
		lexical = hits
		return nil
	})
	g.Go(func() error {
		vec, err := r.embedder.Embed(gctx, query)
		if err != nil {
			if errors.Is(err, models.ErrEmbeddingUnavailable) {
				return err
			}
			return fmt.Errorf("%w: embed query: %v", models.ErrEmbeddingUnavailable, err)
		}
		hits, err := r.store.SearchVector(gctx, vec, k)
		if err != nil {
			return fmt.Errorf("%w: vector search: %v", models.ErrRetrievalUnavailable, err)
		}
		vector = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lexical, vector, nil
}
