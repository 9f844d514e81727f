package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/source"
	"github.com/hyperjump/kotae/internal/store"
)

// Indexer drives the ingest pipeline: discover source files, chunk them,
// embed the chunk texts and hand the result to the store.
type Indexer struct {
	store         *store.Engine
	embedder      embedding.Embedder
	chunker       *chunker.Chunker
	pdfDir        string
	transcriptDir string
	logger        *zap.Logger
}

func New(st *store.Engine, emb embedding.Embedder, ch *chunker.Chunker, pdfDir, transcriptDir string, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		store:         st,
		embedder:      emb,
		chunker:       ch,
		pdfDir:        pdfDir,
		transcriptDir: transcriptDir,
		logger:        logger,
	}
}

// sink abstracts where finished chunks land so incremental updates and
// full rebuilds share one pipeline.
type sink interface {
	Add(chunks []*models.Chunk) error
}

type upsertSink struct {
	ctx   context.Context
	store *store.Engine
}

func (s upsertSink) Add(chunks []*models.Chunk) error { return s.store.Upsert(s.ctx, chunks) }

// Build indexes every discoverable source. In incremental mode sources are
// upserted in place and chunks belonging to vanished files are removed. In
// rebuild mode everything is indexed into a fresh generation which replaces
// the live one atomically on commit.
func (idx *Indexer) Build(ctx context.Context, mode models.IndexMode) (*models.IndexReport, error) {
	pdfs, err := idx.discover(idx.pdfDir, ".pdf")
	if err != nil {
		return nil, err
	}
	transcripts, err := idx.discover(idx.transcriptDir, ".json")
	if err != nil {
		return nil, err
	}

	report := &models.IndexReport{Mode: mode}

	var dest sink
	var builder *store.Builder
	if mode == models.IndexRebuild {
		builder, err = idx.store.NewGeneration()
		if err != nil {
			return nil, err
		}
		dest = builder
	} else {
		dest = upsertSink{ctx: ctx, store: idx.store}
	}

	seen := make(map[string]bool)
	for _, path := range pdfs {
		idx.indexOne(ctx, path, models.SourcePDF, dest, report, seen)
	}
	for _, path := range transcripts {
		idx.indexOne(ctx, path, models.SourceVideo, dest, report, seen)
	}

	if mode == models.IndexRebuild {
		if err := idx.store.Commit(builder); err != nil {
			return nil, err
		}
	} else {
		idx.removeStale(ctx, seen)
		if err := idx.store.Flush(); err != nil {
			return nil, err
		}
	}

	idx.logger.Info("index build finished",
		zap.String("mode", string(mode)),
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (idx *Indexer) indexOne(ctx context.Context, path string, st models.SourceType, dest sink, report *models.IndexReport, seen map[string]bool) {
	chunks, sourceID, err := idx.chunkFile(path, st)
	if err != nil {
		report.Failed++
		report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		idx.logger.Warn("source rejected", zap.String("path", path), zap.Error(err))
		return
	}
	seen[sourceKey(st, sourceID)] = true
	if len(chunks) == 0 {
		report.Skipped++
		idx.logger.Info("source produced no chunks", zap.String("path", path))
		return
	}
	if err := idx.embed(ctx, chunks); err != nil {
		report.Failed++
		report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		idx.logger.Warn("embedding failed for source", zap.String("path", path), zap.Error(err))
		return
	}
	if err := dest.Add(chunks); err != nil {
		report.Failed++
		report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
		return
	}
	report.Indexed += len(chunks)
	idx.logger.Debug("source indexed",
		zap.String("source_id", sourceID),
		zap.String("type", string(st)),
		zap.Int("chunks", len(chunks)))
}

func (idx *Indexer) chunkFile(path string, st models.SourceType) ([]*models.Chunk, string, error) {
	switch st {
	case models.SourcePDF:
		doc, err := source.ReadPDF(path)
		if err != nil {
			return nil, "", err
		}
		chunks, err := idx.chunker.ChunkPDF(doc)
		return chunks, doc.SourceID, err
	case models.SourceVideo:
		tr, err := source.ReadTranscript(path)
		if err != nil {
			return nil, "", err
		}
		chunks, err := idx.chunker.ChunkTranscript(tr)
		return chunks, tr.VideoID, err
	}
	return nil, "", fmt.Errorf("%w: unknown source type %q", models.ErrMalformedSource, st)
}

func (idx *Indexer) embed(ctx context.Context, chunks []*models.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
	}
	return nil
}

// removeStale drops chunks whose source file no longer exists on disk.
func (idx *Indexer) removeStale(ctx context.Context, seen map[string]bool) {
	for _, src := range idx.store.Sources() {
		if seen[sourceKey(src.Type, src.ID)] {
			continue
		}
		ids := idx.store.SourceChunkIDs(src.Type, src.ID)
		if err := idx.store.Delete(ctx, ids); err != nil {
			idx.logger.Warn("stale removal failed", zap.String("source_id", src.ID), zap.Error(err))
			continue
		}
		idx.logger.Info("removed stale source", zap.String("source_id", src.ID), zap.Int("chunks", len(ids)))
	}
}

// IndexFile reindexes a single source file in place. Used by the watcher.
func (idx *Indexer) IndexFile(ctx context.Context, path string) error {
	st, ok := sourceTypeFor(path)
	if !ok {
		return nil
	}
	chunks, sourceID, err := idx.chunkFile(path, st)
	if err != nil {
		return err
	}
	old := idx.store.SourceChunkIDs(st, sourceID)
	if err := idx.embed(ctx, chunks); err != nil {
		return err
	}
	fresh := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		fresh[c.ID] = true
	}
	var stale []string
	for _, id := range old {
		if !fresh[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := idx.store.Delete(ctx, stale); err != nil {
			return err
		}
	}
	if err := idx.store.Upsert(ctx, chunks); err != nil {
		return err
	}
	return idx.store.Flush()
}

// RemoveFile drops every chunk belonging to the given source file.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) error {
	st, ok := sourceTypeFor(path)
	if !ok {
		return nil
	}
	sourceID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if st == models.SourcePDF {
		sourceID = filepath.Base(path)
	}
	ids := idx.store.SourceChunkIDs(st, sourceID)
	if len(ids) == 0 {
		return nil
	}
	if err := idx.store.Delete(ctx, ids); err != nil {
		return err
	}
	return idx.store.Flush()
}

func (idx *Indexer) discover(dir, ext string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			idx.logger.Warn("source directory missing", zap.String("dir", dir))
			return nil, nil
		}
		return nil, fmt.Errorf("reading source dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func sourceTypeFor(path string) (models.SourceType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return models.SourcePDF, true
	case ".json":
		return models.SourceVideo, true
	}
	return "", false
}

func sourceKey(st models.SourceType, id string) string {
	return string(st) + "/" + id
}
