package store

import (
	"context"
	"sync"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func testChunk(st models.SourceType, sourceID string, ordinal int, text string, vec []float32) *models.Chunk {
	return &models.Chunk{
		ID:         models.ChunkID(st, sourceID, ordinal),
		SourceType: st,
		SourceID:   sourceID,
		Ordinal:    ordinal,
		Text:       text,
		Embedding:  vec,
	}
}

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(t.TempDir(), 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_UpsertAndSearch(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	blue := testChunk(models.SourcePDF, "doc.pdf", 0, "The sky is blue.", []float32{1, 0, 0, 0})
	grass := testChunk(models.SourcePDF, "doc.pdf", 1, "Grass is green.", []float32{0, 1, 0, 0})
	if err := e.Upsert(ctx, []*models.Chunk{blue, grass}); err != nil {
		t.Fatal(err)
	}

	hits, err := e.SearchLexical(ctx, "blue", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ChunkID != blue.ID {
		t.Errorf("lexical search for blue: %v", hits)
	}

	hits, err = e.SearchVector(ctx, []float32{0, 1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ChunkID != grass.ID {
		t.Errorf("vector search nearest: %v", hits)
	}

	got, err := e.GetChunk(ctx, blue.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != blue.Text {
		t.Errorf("GetChunk text = %q", got.Text)
	}
}

func TestEngine_UpsertRejectsMissingEmbedding(t *testing.T) {
	e := openTestEngine(t)
	c := testChunk(models.SourcePDF, "doc.pdf", 0, "text", nil)
	if err := e.Upsert(context.Background(), []*models.Chunk{c}); err == nil {
		t.Error("expected error for chunk without embedding")
	}
}

func TestEngine_UpsertIsIdempotent(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	c := testChunk(models.SourceVideo, "talk", 0, "hello world", []float32{1, 0, 0, 0})
	for i := 0; i < 3; i++ {
		if err := e.Upsert(ctx, []*models.Chunk{c}); err != nil {
			t.Fatal(err)
		}
	}
	if n := e.gen.Load().vector.Size(); n != 1 {
		t.Errorf("vector count after re-upserts = %d, want 1", n)
	}
	if n := e.Count(models.SourceVideo); n != 1 {
		t.Errorf("chunk count = %d, want 1", n)
	}
}

func TestEngine_Delete(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	c := testChunk(models.SourcePDF, "doc.pdf", 0, "ephemeral text", []float32{1, 0, 0, 0})
	if err := e.Upsert(ctx, []*models.Chunk{c}); err != nil {
		t.Fatal(err)
	}
	if err := e.Delete(ctx, []string{c.ID}); err != nil {
		t.Fatal(err)
	}
	if hits, _ := e.SearchLexical(ctx, "ephemeral", 10); len(hits) != 0 {
		t.Errorf("deleted chunk still in lexical index: %v", hits)
	}
	if hits, _ := e.SearchVector(ctx, []float32{1, 0, 0, 0}, 10); len(hits) != 0 {
		t.Errorf("deleted chunk still in vector index: %v", hits)
	}
	if _, err := e.GetChunk(ctx, c.ID); err == nil {
		t.Error("deleted chunk still resolvable")
	}
}

func TestEngine_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	c := testChunk(models.SourcePDF, "doc.pdf", 0, "durable content", []float32{0, 0, 1, 0})

	e, err := Open(dir, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Upsert(ctx, []*models.Chunk{c}); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	e2, err := Open(dir, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e2.Close()
	got, err := e2.GetChunk(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "durable content" {
		t.Errorf("reloaded text = %q", got.Text)
	}
	if hits, _ := e2.SearchLexical(ctx, "durable", 10); len(hits) != 1 {
		t.Errorf("lexical index not reloaded: %v", hits)
	}
	if hits, _ := e2.SearchVector(ctx, []float32{0, 0, 1, 0}, 1); len(hits) != 1 || hits[0].ChunkID != c.ID {
		t.Errorf("vector index not reloaded: %v", hits)
	}
}

func TestEngine_RebuildSwapsAtomically(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	old := testChunk(models.SourcePDF, "old.pdf", 0, "old generation text", []float32{1, 0, 0, 0})
	if err := e.Upsert(ctx, []*models.Chunk{old}); err != nil {
		t.Fatal(err)
	}

	b, err := e.NewGeneration()
	if err != nil {
		t.Fatal(err)
	}
	fresh := testChunk(models.SourcePDF, "new.pdf", 0, "new generation text", []float32{0, 1, 0, 0})
	if err := b.Add([]*models.Chunk{fresh}); err != nil {
		t.Fatal(err)
	}

	// Until commit, queries see only the old generation.
	if hits, _ := e.SearchLexical(ctx, "new", 10); len(hits) != 0 {
		t.Errorf("uncommitted generation visible: %v", hits)
	}
	if err := e.Commit(b); err != nil {
		t.Fatal(err)
	}
	if hits, _ := e.SearchLexical(ctx, "old", 10); len(hits) != 0 {
		t.Errorf("old generation visible after swap: %v", hits)
	}
	hits, err := e.SearchLexical(ctx, "new", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ChunkID != fresh.ID {
		t.Errorf("new generation not visible: %v", hits)
	}
	if gen := e.Stats().Generation; gen != 1 {
		t.Errorf("generation = %d, want 1", gen)
	}
}

func TestEngine_RebuildWithConcurrentReaders(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	old := testChunk(models.SourcePDF, "old.pdf", 0, "shared search term", []float32{1, 0, 0, 0})
	if err := e.Upsert(ctx, []*models.Chunk{old}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				hits, err := e.SearchLexical(ctx, "shared", 10)
				if err != nil {
					t.Errorf("search during rebuild failed: %v", err)
					return
				}
				// Readers see one complete generation: exactly one hit,
				// never zero, never a mix.
				if len(hits) != 1 {
					t.Errorf("got %d hits during rebuild", len(hits))
					return
				}
			}
		}()
	}

	for genRound := 0; genRound < 3; genRound++ {
		b, err := e.NewGeneration()
		if err != nil {
			t.Fatal(err)
		}
		c := testChunk(models.SourcePDF, "next.pdf", genRound, "shared search term again", []float32{0, 1, 0, 0})
		if err := b.Add([]*models.Chunk{c}); err != nil {
			t.Fatal(err)
		}
		if err := e.Commit(b); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestEngine_AbortDiscardsGeneration(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	keep := testChunk(models.SourcePDF, "keep.pdf", 0, "kept content", []float32{1, 0, 0, 0})
	if err := e.Upsert(ctx, []*models.Chunk{keep}); err != nil {
		t.Fatal(err)
	}
	b, err := e.NewGeneration()
	if err != nil {
		t.Fatal(err)
	}
	e.Abort(b)
	if hits, _ := e.SearchLexical(ctx, "kept", 10); len(hits) != 1 {
		t.Errorf("abort disturbed the live generation: %v", hits)
	}
}

func TestEngine_StatsAndSources(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()
	chunks := []*models.Chunk{
		testChunk(models.SourcePDF, "a.pdf", 0, "one", []float32{1, 0, 0, 0}),
		testChunk(models.SourcePDF, "a.pdf", 1, "two", []float32{0, 1, 0, 0}),
		testChunk(models.SourceVideo, "talk", 0, "three", []float32{0, 0, 1, 0}),
	}
	if err := e.Upsert(ctx, chunks); err != nil {
		t.Fatal(err)
	}

	stats := e.Stats()
	if stats.PDFChunks != 2 || stats.VideoChunks != 1 {
		t.Errorf("chunk counts = %d/%d", stats.PDFChunks, stats.VideoChunks)
	}
	if len(stats.PDFSources) != 1 || stats.PDFSources[0] != "a.pdf" {
		t.Errorf("pdf sources = %v", stats.PDFSources)
	}
	if len(stats.VideoSources) != 1 || stats.VideoSources[0] != "talk" {
		t.Errorf("video sources = %v", stats.VideoSources)
	}

	refs := e.Sources()
	if len(refs) != 2 {
		t.Fatalf("sources = %v", refs)
	}

	ids := e.SourceChunkIDs(models.SourcePDF, "a.pdf")
	if len(ids) != 2 {
		t.Errorf("source chunk IDs = %v", ids)
	}

	samples := e.SampleTexts(1)
	if len(samples[models.SourcePDF]) != 1 || len(samples[models.SourceVideo]) != 1 {
		t.Errorf("samples = %v", samples)
	}
}

func TestEngine_GetChunkMissing(t *testing.T) {
	e := openTestEngine(t)
	if _, err := e.GetChunk(context.Background(), "absent"); err == nil {
		t.Error("expected error for missing chunk")
	}
}
