// Package summary builds a short overview of the indexed knowledge base:
// what it covers, its main topics and a few questions it can answer.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

const summaryFile = "knowledge_summary.json"

const summaryPrompt = `You are given sample passages from a knowledge base built from PDF documents and video transcripts.

Sources:
%s

Samples:
%s

Respond with a JSON object and nothing else, in this exact shape:
{"overview": "<two or three sentences describing what the knowledge base covers>", "topics": ["<topic>", ...], "suggested_questions": ["<question the knowledge base can answer>", ...]}

List at most six topics and at most five suggested questions.`

// Generator produces and persists the knowledge summary.
type Generator struct {
	gen    answer.Generator
	dir    string
	logger *zap.Logger
}

func New(gen answer.Generator, dataDir string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{gen: gen, dir: dataDir, logger: logger}
}

// Generate asks the language model for a summary of the indexed material and
// persists the result. When generation fails a plain summary assembled from
// the stats alone is returned instead, so callers always get something usable.
func (g *Generator) Generate(ctx context.Context, stats *models.IndexStats, samples map[models.SourceType][]string) (*models.KnowledgeSummary, error) {
	prompt := fmt.Sprintf(summaryPrompt, describeSources(stats), describeSamples(samples))
	raw, err := g.gen.Generate(ctx, prompt)
	if err != nil {
		g.logger.Warn("summary generation failed, using fallback", zap.Error(err))
		return g.persist(Fallback(stats))
	}
	s, err := parseSummary(raw)
	if err != nil {
		g.logger.Warn("summary response unparseable, using fallback", zap.Error(err))
		return g.persist(Fallback(stats))
	}
	return g.persist(s)
}

// Load returns the persisted summary, or nil when none has been generated yet.
func (g *Generator) Load() (*models.KnowledgeSummary, error) {
	data, err := os.ReadFile(filepath.Join(g.dir, summaryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load summary: %w", err)
	}
	var s models.KnowledgeSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	return &s, nil
}

func (g *Generator) persist(s *models.KnowledgeSummary) (*models.KnowledgeSummary, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(g.dir, summaryFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("persist summary: %w", err)
	}
	return s, nil
}

// Fallback builds a summary from index stats alone, without a language model.
func Fallback(stats *models.IndexStats) *models.KnowledgeSummary {
	var topics []string
	topics = append(topics, stats.PDFSources...)
	topics = append(topics, stats.VideoSources...)
	return &models.KnowledgeSummary{
		Overview: fmt.Sprintf("The knowledge base contains %d document(s) and %d video transcript(s).",
			len(stats.PDFSources), len(stats.VideoSources)),
		Topics: topics,
		SuggestedQuestions: []string{
			"What topics are covered in the documents?",
			"What is discussed in the videos?",
		},
	}
}

// parseSummary decodes the model response, tolerating markdown code fences.
func parseSummary(raw string) (*models.KnowledgeSummary, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	var s models.KnowledgeSummary
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("parse summary: %w", err)
	}
	if s.Overview == "" {
		return nil, fmt.Errorf("parse summary: empty overview")
	}
	return &s, nil
}

func describeSources(stats *models.IndexStats) string {
	var b strings.Builder
	for _, id := range stats.PDFSources {
		fmt.Fprintf(&b, "- document: %s\n", id)
	}
	for _, id := range stats.VideoSources {
		fmt.Fprintf(&b, "- video: %s\n", id)
	}
	if b.Len() == 0 {
		return "(none)\n"
	}
	return b.String()
}

func describeSamples(samples map[models.SourceType][]string) string {
	var b strings.Builder
	for _, st := range []models.SourceType{models.SourcePDF, models.SourceVideo} {
		for _, text := range samples[st] {
			fmt.Fprintf(&b, "- %s\n", utils.Truncate(text, 300))
		}
	}
	if b.Len() == 0 {
		return "(none)\n"
	}
	return b.String()
}
