package store

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/kotae/internal/models"
)

// LexicalIndex is the BM25 side of the store, backed by Bleve.
type LexicalIndex struct {
	index bleve.Index
}

// lexicalDoc is the shape indexed per chunk.
type lexicalDoc struct {
	Text string `json:"text"`
}

// NewLexicalIndex creates or opens a Bleve index at path. An empty path
// creates a memory-only index (tests). The standard analyzer (lowercase +
// tokenize, no stemming) is used so query terms match exact words.
func NewLexicalIndex(path string) (*LexicalIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &LexicalIndex{index: index}, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &LexicalIndex{index: index}, nil
	}
	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &LexicalIndex{index: index}, nil
}

// IndexBatch indexes chunk texts keyed by chunk ID in one Bleve batch.
func (l *LexicalIndex) IndexBatch(chunks []*models.Chunk) error {
	batch := l.index.NewBatch()
	for _, c := range chunks {
		if err := batch.Index(c.ID, lexicalDoc{Text: c.Text}); err != nil {
			return fmt.Errorf("batch index chunk %s: %w", c.ID, err)
		}
	}
	return l.index.Batch(batch)
}

// Delete removes a chunk from the index.
func (l *LexicalIndex) Delete(id string) error {
	return l.index.Delete(id)
}

// Search runs a match query over chunk text and returns up to k hits ranked
// by descending score; equal scores are ordered by chunk ID ascending so the
// ranking is reproducible.
func (l *LexicalIndex) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequest(q)
	req.Size = k
	res, err := l.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}
	hits := make([]Hit, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = Hit{ChunkID: h.ID, Score: h.Score}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	return hits, nil
}

// DocCount returns the number of indexed chunks.
func (l *LexicalIndex) DocCount() (uint64, error) {
	return l.index.DocCount()
}

// Close closes the underlying index.
func (l *LexicalIndex) Close() {
	_ = l.index.Close()
}
