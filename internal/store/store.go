// Package store provides the combined lexical + vector search store with
// atomic generation swap for index rebuilds.
//
// A generation bundles a Bleve BM25 index, a vector index, and the chunk
// catalog map. Queries read the current generation through an atomic pointer
// and never take a lock across a search; a rebuild populates a complete new
// generation before swapping it in, so readers observe either the fully-old
// or the fully-new index, never a mix.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// Hit is a single search result: a chunk ID with its raw engine score.
// Lexical scores are BM25 magnitudes, vector scores are cosine similarities;
// the two scales are never compared directly (fusion normalizes per query).
type Hit struct {
	ChunkID string
	Score   float64
}

// Engine is the chunk store: catalog persistence plus per-generation search
// indices. The indexing pipeline is the only writer; queries only read.
type Engine struct {
	dir        string
	dimensions int
	catalog    *Catalog
	logger     *zap.Logger

	gen atomic.Pointer[generation]
	// prev is the generation retired by the last rebuild. It stays open until
	// the next rebuild commits so that queries in flight during a swap can
	// finish against it.
	prev *generation
	mu   sync.Mutex // serializes writers: upserts, deletes, commits
}

type generation struct {
	id      uint64
	lexical *LexicalIndex
	vector  *VectorIndex

	mu     sync.RWMutex
	chunks map[string]*models.Chunk
}

// Open opens or creates the store under dir. Previously persisted chunks,
// vectors, and the Bleve index for the current generation are loaded.
func Open(dir string, dimensions int, logger *zap.Logger) (*Engine, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	catalog, err := NewCatalog(filepath.Join(dir, "catalog.db"))
	if err != nil {
		return nil, err
	}
	genID, err := catalog.CurrentGeneration()
	if err != nil {
		_ = catalog.Close()
		return nil, err
	}
	g, err := openGeneration(dir, genID, dimensions)
	if err != nil {
		_ = catalog.Close()
		return nil, err
	}
	chunks, err := catalog.LoadChunks(genID)
	if err != nil {
		g.close()
		_ = catalog.Close()
		return nil, err
	}
	for _, c := range chunks {
		g.chunks[c.ID] = c
	}
	e := &Engine{dir: dir, dimensions: dimensions, catalog: catalog, logger: logger}
	e.gen.Store(g)
	return e, nil
}

func generationDir(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("gen-%d", id))
}

func openGeneration(dir string, id uint64, dimensions int) (*generation, error) {
	gdir := generationDir(dir, id)
	lexical, err := NewLexicalIndex(filepath.Join(gdir, "lexical"))
	if err != nil {
		return nil, err
	}
	vector, err := NewVectorIndex(dimensions)
	if err != nil {
		lexical.Close()
		return nil, err
	}
	if err := vector.Load(filepath.Join(gdir, "vectors.bin")); err != nil {
		lexical.Close()
		return nil, err
	}
	return &generation{
		id:      id,
		lexical: lexical,
		vector:  vector,
		chunks:  make(map[string]*models.Chunk),
	}, nil
}

func (g *generation) close() {
	g.lexical.Close()
}

// Upsert inserts or updates chunks in the live generation, keyed by chunk ID.
func (e *Engine) Upsert(ctx context.Context, chunks []*models.Chunk) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.gen.Load()
	if err := g.add(chunks); err != nil {
		return err
	}
	return e.catalog.UpsertChunks(g.id, chunks)
}

func (g *generation) add(chunks []*models.Chunk) error {
	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		if c.Embedding == nil {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		ids[i] = c.ID
		vectors[i] = c.Embedding
	}
	// Remove first so a re-indexed chunk does not leave a duplicate vector.
	if err := g.vector.Remove(ids); err != nil {
		return err
	}
	if err := g.vector.Add(ids, vectors); err != nil {
		return err
	}
	if err := g.lexical.IndexBatch(chunks); err != nil {
		return err
	}
	g.mu.Lock()
	for _, c := range chunks {
		g.chunks[c.ID] = c
	}
	g.mu.Unlock()
	return nil
}

// Delete removes chunks by ID from the live generation.
func (e *Engine) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.gen.Load()
	if err := g.vector.Remove(ids); err != nil {
		return err
	}
	for _, id := range ids {
		if err := g.lexical.Delete(id); err != nil {
			return err
		}
	}
	g.mu.Lock()
	for _, id := range ids {
		delete(g.chunks, id)
	}
	g.mu.Unlock()
	return e.catalog.DeleteChunks(g.id, ids)
}

// SearchLexical runs a BM25 query against the current generation, returning
// up to k hits ranked by descending score, ties broken by chunk ID ascending.
func (e *Engine) SearchLexical(ctx context.Context, query string, k int) ([]Hit, error) {
	return e.gen.Load().lexical.Search(ctx, query, k)
}

// SearchVector runs nearest-neighbor search against the current generation,
// returning up to k hits ranked by descending similarity, ties broken by
// chunk ID ascending.
func (e *Engine) SearchVector(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	return e.gen.Load().vector.Search(ctx, vec, k)
}

// GetChunk returns the chunk with the given ID from the current generation.
func (e *Engine) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	g := e.gen.Load()
	g.mu.RLock()
	c, ok := g.chunks[id]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("chunk %s not found", id)
	}
	return c, nil
}

// SourceChunkIDs returns the IDs of every chunk belonging to the given source.
func (e *Engine) SourceChunkIDs(sourceType models.SourceType, sourceID string) []string {
	g := e.gen.Load()
	g.mu.RLock()
	defer g.mu.RUnlock()
	var ids []string
	for id, c := range g.chunks {
		if c.SourceType == sourceType && c.SourceID == sourceID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SourceRef identifies one indexed source file.
type SourceRef struct {
	Type models.SourceType
	ID   string
}

// Sources lists every distinct source present in the current generation.
func (e *Engine) Sources() []SourceRef {
	g := e.gen.Load()
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := make(map[SourceRef]bool)
	for _, c := range g.chunks {
		set[SourceRef{Type: c.SourceType, ID: c.SourceID}] = true
	}
	refs := make([]SourceRef, 0, len(set))
	for ref := range set {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Type != refs[j].Type {
			return refs[i].Type < refs[j].Type
		}
		return refs[i].ID < refs[j].ID
	})
	return refs
}

// Count returns the number of chunks for the given source domain.
func (e *Engine) Count(domain models.SourceType) int {
	g := e.gen.Load()
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, c := range g.chunks {
		if c.SourceType == domain {
			n++
		}
	}
	return n
}

// Stats reports per-domain sources and chunk counts for the current generation.
func (e *Engine) Stats() *models.IndexStats {
	g := e.gen.Load()
	g.mu.RLock()
	defer g.mu.RUnlock()
	stats := &models.IndexStats{Generation: g.id}
	pdf := make(map[string]bool)
	video := make(map[string]bool)
	for _, c := range g.chunks {
		switch c.SourceType {
		case models.SourcePDF:
			pdf[c.SourceID] = true
			stats.PDFChunks++
		case models.SourceVideo:
			video[c.SourceID] = true
			stats.VideoChunks++
		}
	}
	for id := range pdf {
		stats.PDFSources = append(stats.PDFSources, id)
	}
	for id := range video {
		stats.VideoSources = append(stats.VideoSources, id)
	}
	sort.Strings(stats.PDFSources)
	sort.Strings(stats.VideoSources)
	return stats
}

// SampleTexts returns up to n chunk texts per domain, by ascending chunk ID.
// Used to seed the knowledge summary.
func (e *Engine) SampleTexts(n int) map[models.SourceType][]string {
	g := e.gen.Load()
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.chunks))
	for id := range g.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make(map[models.SourceType][]string)
	for _, id := range ids {
		c := g.chunks[id]
		if len(out[c.SourceType]) < n {
			out[c.SourceType] = append(out[c.SourceType], c.Text)
		}
	}
	return out
}

// Flush persists the live generation's vectors to disk.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.gen.Load()
	return g.vector.Save(filepath.Join(generationDir(e.dir, g.id), "vectors.bin"))
}

// Close flushes and closes the store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.prev != nil {
		e.prev.close()
		e.prev = nil
	}
	g := e.gen.Load()
	if err := g.vector.Save(filepath.Join(generationDir(e.dir, g.id), "vectors.bin")); err != nil {
		return err
	}
	g.close()
	return e.catalog.Close()
}
