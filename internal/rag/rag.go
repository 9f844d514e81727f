// Package rag wires retrieval, fusion, context assembly and answer
// generation into one question-answering system over the indexed sources.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/assembler"
	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/fusion"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retriever"
	"github.com/hyperjump/kotae/internal/store"
	"github.com/hyperjump/kotae/internal/summary"
)

// System is the top-level facade. It owns the store, the ingest pipeline
// and the answering pipeline.
type System struct {
	cfg          *config.Config
	store        *store.Engine
	indexer      *indexer.Indexer
	retriever    *retriever.Retriever
	assembler    *assembler.Assembler
	orchestrator *answer.Orchestrator
	summaries    *summary.Generator
	logger       *zap.Logger
}

// New assembles a System from its external collaborators. The embedder is
// wrapped in a batch validator; gen drives both answers and summaries.
func New(cfg *config.Config, st *store.Engine, emb embedding.Embedder, gen answer.Generator, logger *zap.Logger) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	batcher := embedding.NewBatcher(emb, cfg.Embedding.BatchSize, cfg.Embedding.MaxConcurrency)
	ch := chunker.New(
		cfg.Chunking.ChunkMaxSize,
		cfg.Chunking.ChunkOverlap,
		cfg.Chunking.VideoMaxWords,
		cfg.Chunking.VideoMaxSpanSeconds,
		logger,
	)
	return &System{
		cfg:          cfg,
		store:        st,
		indexer:      indexer.New(st, batcher, ch, cfg.Sources.PDFDir, cfg.Sources.TranscriptDir, logger),
		retriever:    retriever.New(st, batcher),
		assembler:    assembler.New(st, cfg.Query.ContextBudget),
		orchestrator: answer.NewOrchestrator(gen),
		summaries:    summary.New(gen, cfg.Storage.DataDir, logger),
		logger:       logger,
	}
}

// BuildIndex runs the ingest pipeline and refreshes the knowledge summary.
func (s *System) BuildIndex(ctx context.Context, mode models.IndexMode) (*models.IndexReport, error) {
	report, err := s.indexer.Build(ctx, mode)
	if err != nil {
		return nil, err
	}
	if _, err := s.summaries.Generate(ctx, s.store.Stats(), s.store.SampleTexts(3)); err != nil {
		// The index itself is fine; a missing summary only degrades /knowledge.
		s.logger.Warn("knowledge summary refresh failed", zap.Error(err))
	}
	return report, nil
}

// IndexFile reindexes one source file in place.
func (s *System) IndexFile(ctx context.Context, path string) error {
	return s.indexer.IndexFile(ctx, path)
}

// RemoveFile removes every chunk of one source file.
func (s *System) RemoveFile(ctx context.Context, path string) error {
	return s.indexer.RemoveFile(ctx, path)
}

// AnswerQuestion runs the full answering pipeline under the configured
// query timeout. A blank question is rejected up front. When no candidate
// clears the relevance threshold the call fails with ErrNoRelevantResults
// rather than answering from unrelated material.
func (s *System) AnswerQuestion(ctx context.Context, question string) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, models.ErrEmptyQuestion
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Query.Timeout)
	defer cancel()

	lexical, vector, err := s.retriever.Retrieve(ctx, question, s.cfg.Query.TopKCandidates)
	if err != nil {
		return nil, s.mapTimeout(ctx, err)
	}
	weights := fusion.Weights{
		Lexical: s.cfg.Query.LexicalWeight,
		Vector:  s.cfg.Query.VectorWeight,
	}
	threshold := *s.cfg.Query.RelevanceThreshold
	candidates := fusion.Fuse(lexical, vector, weights, threshold, s.cfg.Query.MaxResults)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidate scored at or above %.2f",
			models.ErrNoRelevantResults, threshold)
	}
	s.logger.Debug("retrieval complete",
		zap.Int("lexical", len(lexical)),
		zap.Int("vector", len(vector)),
		zap.Int("fused", len(candidates)))

	c, err := s.assembler.Assemble(ctx, candidates)
	if err != nil {
		return nil, s.mapTimeout(ctx, err)
	}
	if c.Empty() {
		return nil, fmt.Errorf("%w: no retrieved chunk fit the context budget", models.ErrNoRelevantResults)
	}
	ans, err := s.orchestrator.Answer(ctx, question, c)
	if err != nil {
		return nil, s.mapTimeout(ctx, err)
	}
	return ans, nil
}

// Stats reports the current index contents.
func (s *System) Stats() *models.IndexStats {
	return s.store.Stats()
}

// KnowledgeSummary returns the persisted summary, or a stats-derived
// fallback when none has been generated.
func (s *System) KnowledgeSummary() (*models.KnowledgeSummary, error) {
	sum, err := s.summaries.Load()
	if err != nil {
		return nil, err
	}
	if sum == nil {
		return summary.Fallback(s.store.Stats()), nil
	}
	return sum, nil
}

// mapTimeout turns deadline expiry into ErrTimeout; other errors pass through.
func (s *System) mapTimeout(ctx context.Context, err error) error {
	if errors.Is(err, models.ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: query exceeded %s", models.ErrTimeout, s.cfg.Query.Timeout)
	}
	return err
}
