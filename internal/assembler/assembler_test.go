package assembler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

type mapLookup map[string]*models.Chunk

func (m mapLookup) GetChunk(_ context.Context, id string) (*models.Chunk, error) {
	if c, ok := m[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("chunk %s not found", id)
}

func pdfChunk(id, text string, page int) *models.Chunk {
	return &models.Chunk{
		ID: id, SourceType: models.SourcePDF, SourceID: "doc.pdf",
		Text: text, PageStart: page, PageEnd: page,
	}
}

func candidates(ids ...string) []*models.SearchCandidate {
	out := make([]*models.SearchCandidate, len(ids))
	for i, id := range ids {
		out[i] = &models.SearchCandidate{ChunkID: id}
	}
	return out
}

func TestAssemble_OrderAndCitations(t *testing.T) {
	lookup := mapLookup{
		"a": pdfChunk("a", "First ranked text.", 1),
		"b": pdfChunk("b", "Second ranked text.", 2),
	}
	a := New(lookup, 10000)
	c, err := a.Assemble(context.Background(), candidates("a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Chunks) != 2 || len(c.Citations) != 2 {
		t.Fatalf("chunks=%d citations=%d", len(c.Chunks), len(c.Citations))
	}
	if c.Citations[0].ChunkID != "a" || c.Citations[1].ChunkID != "b" {
		t.Errorf("citation order = %v", c.Citations)
	}
	if !strings.Contains(c.Text, "[1] doc.pdf p.1: First ranked text.") {
		t.Errorf("context text missing first block:\n%s", c.Text)
	}
	if !strings.Contains(c.Text, "[2] doc.pdf p.2: Second ranked text.") {
		t.Errorf("context text missing second block:\n%s", c.Text)
	}
	if c.Size != len(c.Text) {
		t.Errorf("size = %d, text length = %d", c.Size, len(c.Text))
	}
}

func TestAssemble_BudgetSkipsWholeChunks(t *testing.T) {
	big := strings.Repeat("x", 500)
	lookup := mapLookup{
		"big":   pdfChunk("big", big, 1),
		"small": pdfChunk("small", "fits fine", 2),
	}
	a := New(lookup, 100)
	c, err := a.Assemble(context.Background(), candidates("big", "small"))
	if err != nil {
		t.Fatal(err)
	}
	// The oversized rank-1 chunk is skipped entirely, not truncated; the
	// smaller lower-ranked chunk still makes it in.
	if len(c.Chunks) != 1 || c.Chunks[0].ID != "small" {
		t.Fatalf("included chunks = %+v", c.Chunks)
	}
	if strings.Contains(c.Text, "xxx") {
		t.Error("oversized chunk text leaked into context")
	}
	if !strings.Contains(c.Text, "[1] doc.pdf p.2: fits fine") {
		t.Errorf("included chunk not numbered from 1:\n%s", c.Text)
	}
}

func TestAssemble_NothingFits(t *testing.T) {
	lookup := mapLookup{"a": pdfChunk("a", strings.Repeat("y", 200), 1)}
	a := New(lookup, 50)
	c, err := a.Assemble(context.Background(), candidates("a"))
	if err != nil {
		t.Fatal(err)
	}
	if !c.Empty() {
		t.Errorf("expected empty context, got %q", c.Text)
	}
}

func TestAssemble_EvictedChunksSkipped(t *testing.T) {
	lookup := mapLookup{"present": pdfChunk("present", "still here", 1)}
	a := New(lookup, 10000)
	c, err := a.Assemble(context.Background(), candidates("gone", "present"))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Chunks) != 1 || c.Chunks[0].ID != "present" {
		t.Errorf("chunks = %+v", c.Chunks)
	}
}

func TestAssemble_VideoLabels(t *testing.T) {
	lookup := mapLookup{
		"v": {
			ID: "v", SourceType: models.SourceVideo, SourceID: "intro.mp4",
			Text: "Discussing sky color.", TimeStart: 12, TimeEnd: 31.5,
		},
	}
	a := New(lookup, 10000)
	c, err := a.Assemble(context.Background(), candidates("v"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(c.Text, "[1] intro.mp4 12.0s-31.5s: Discussing sky color.") {
		t.Errorf("video block label wrong:\n%s", c.Text)
	}
}
