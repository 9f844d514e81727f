package store

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// Builder accumulates a complete new index generation during a rebuild. It
// is invisible to queries until Commit swaps it in.
type Builder struct {
	gen *generation
}

// NewGeneration starts a rebuild: a fresh generation with empty indices.
func (e *Engine) NewGeneration() (*Builder, error) {
	e.mu.Lock()
	nextID := e.gen.Load().id + 1
	e.mu.Unlock()
	gdir := generationDir(e.dir, nextID)
	if err := os.RemoveAll(gdir); err != nil {
		return nil, fmt.Errorf("clear generation dir: %w", err)
	}
	lexical, err := NewLexicalIndex(filepath.Join(gdir, "lexical"))
	if err != nil {
		return nil, err
	}
	vector, err := NewVectorIndex(e.dimensions)
	if err != nil {
		lexical.Close()
		return nil, err
	}
	return &Builder{gen: &generation{
		id:      nextID,
		lexical: lexical,
		vector:  vector,
		chunks:  make(map[string]*models.Chunk),
	}}, nil
}

// Add indexes chunks into the generation under construction.
func (b *Builder) Add(chunks []*models.Chunk) error {
	return b.gen.add(chunks)
}

// Commit persists the new generation and atomically swaps it in. Queries the
// instant after Commit see only the new generation. The generation retired by
// the previous rebuild (if any) is closed and its files removed.
func (e *Engine) Commit(b *Builder) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := b.gen
	if err := g.vector.Save(filepath.Join(generationDir(e.dir, g.id), "vectors.bin")); err != nil {
		return fmt.Errorf("persist vectors: %w", err)
	}
	g.mu.RLock()
	all := make([]*models.Chunk, 0, len(g.chunks))
	for _, c := range g.chunks {
		all = append(all, c)
	}
	g.mu.RUnlock()
	if err := e.catalog.ReplaceGeneration(g.id, all); err != nil {
		return fmt.Errorf("persist catalog: %w", err)
	}

	old := e.gen.Swap(g)
	if e.prev != nil {
		e.prev.close()
		if err := os.RemoveAll(generationDir(e.dir, e.prev.id)); err != nil && e.logger != nil {
			e.logger.Warn("failed to remove retired generation",
				zap.Uint64("generation", e.prev.id), zap.Error(err))
		}
	}
	e.prev = old
	if e.logger != nil {
		e.logger.Info("index generation swapped",
			zap.Uint64("generation", g.id), zap.Int("chunks", len(all)))
	}
	return nil
}

// Abort discards a generation under construction.
func (e *Engine) Abort(b *Builder) {
	b.gen.close()
	_ = os.RemoveAll(generationDir(e.dir, b.gen.id))
}
