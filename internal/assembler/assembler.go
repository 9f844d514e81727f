// Package assembler builds the grounded context window for answer generation.
package assembler

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// ChunkLookup resolves a chunk ID to its chunk.
type ChunkLookup interface {
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
}

// Assembler selects chunks into a bounded context.
type Assembler struct {
	chunks ChunkLookup
	budget int // character budget for the rendered context
}

// New creates an assembler reading chunk text through lookup.
func New(chunks ChunkLookup, budget int) *Assembler {
	return &Assembler{chunks: chunks, budget: budget}
}

// Assemble walks candidates in ranked order, appending each chunk as a
// "[n] label: text" block until the next block would exceed the budget.
// A chunk that alone exceeds the remaining budget is skipped whole, never
// truncated, so every citation refers to intact text. The citation map
// mirrors the inclusion order. Candidates whose chunk has been evicted since
// retrieval are skipped; chunk references are weak.
func (a *Assembler) Assemble(ctx context.Context, candidates []*models.SearchCandidate) (*models.Context, error) {
	var (
		b         strings.Builder
		chunks    []*models.Chunk
		citations []models.Citation
		size      int
	)
	for _, cand := range candidates {
		chunk, err := a.chunks.GetChunk(ctx, cand.ChunkID)
		if err != nil {
			continue
		}
		block := fmt.Sprintf("[%d] %s: %s\n\n", len(chunks)+1, chunk.Citation().Label(), chunk.Text)
		if size+len(block) > a.budget {
			continue
		}
		b.WriteString(block)
		size += len(block)
		chunks = append(chunks, chunk)
		citations = append(citations, chunk.Citation())
	}
	return &models.Context{
		Text:      b.String(),
		Chunks:    chunks,
		Citations: citations,
		Size:      size,
	}, nil
}
