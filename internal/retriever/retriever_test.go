package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/store"
)

type fakeSearcher struct {
	lexical []store.Hit
	vector  []store.Hit
	lexErr  error
	vecErr  error
}

func (f *fakeSearcher) SearchLexical(_ context.Context, _ string, _ int) ([]store.Hit, error) {
	return f.lexical, f.lexErr
}

func (f *fakeSearcher) SearchVector(_ context.Context, _ []float32, _ int) ([]store.Hit, error) {
	return f.vector, f.vecErr
}

func TestRetrieve_BothSides(t *testing.T) {
	s := &fakeSearcher{
		lexical: []store.Hit{{ChunkID: "a", Score: 3}},
		vector:  []store.Hit{{ChunkID: "b", Score: 0.9}},
	}
	r := New(s, embedding.NewMockEmbedder(16))
	lex, vec, err := r.Retrieve(context.Background(), "query", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(lex) != 1 || lex[0].ChunkID != "a" {
		t.Errorf("lexical = %v", lex)
	}
	if len(vec) != 1 || vec[0].ChunkID != "b" {
		t.Errorf("vector = %v", vec)
	}
}

func TestRetrieve_LexicalFailure(t *testing.T) {
	s := &fakeSearcher{lexErr: errors.New("index offline")}
	r := New(s, embedding.NewMockEmbedder(16))
	_, _, err := r.Retrieve(context.Background(), "query", 10)
	if !errors.Is(err, models.ErrRetrievalUnavailable) {
		t.Errorf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestRetrieve_VectorFailure(t *testing.T) {
	s := &fakeSearcher{vecErr: errors.New("index offline")}
	r := New(s, embedding.NewMockEmbedder(16))
	_, _, err := r.Retrieve(context.Background(), "query", 10)
	if !errors.Is(err, models.ErrRetrievalUnavailable) {
		t.Errorf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

type failingEmbedder struct{ embedding.Embedder }

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("provider down")
}

func TestRetrieve_EmbedFailure(t *testing.T) {
	s := &fakeSearcher{}
	r := New(s, failingEmbedder{embedding.NewMockEmbedder(16)})
	_, _, err := r.Retrieve(context.Background(), "query", 10)
	if !errors.Is(err, models.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestRetrieve_EmptyStores(t *testing.T) {
	r := New(&fakeSearcher{}, embedding.NewMockEmbedder(16))
	lex, vec, err := r.Retrieve(context.Background(), "query", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(lex) != 0 || len(vec) != 0 {
		t.Errorf("expected empty lists, got %v / %v", lex, vec)
	}
}
