package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

type fakeGenerator struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func testStats() *models.IndexStats {
	return &models.IndexStats{
		PDFSources:   []string{"report.pdf"},
		VideoSources: []string{"intro"},
		PDFChunks:    4,
		VideoChunks:  2,
	}
}

func TestGenerate_ParsesModelResponse(t *testing.T) {
	gen := &fakeGenerator{reply: `{"overview": "Covers sky physics.", "topics": ["light"], "suggested_questions": ["Why is the sky blue?"]}`}
	g := New(gen, t.TempDir(), nil)
	s, err := g.Generate(context.Background(), testStats(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Overview != "Covers sky physics." {
		t.Errorf("overview = %q", s.Overview)
	}
	if len(s.Topics) != 1 || s.Topics[0] != "light" {
		t.Errorf("topics = %v", s.Topics)
	}
	if !strings.Contains(gen.prompt, "report.pdf") || !strings.Contains(gen.prompt, "intro") {
		t.Error("prompt does not list the sources")
	}
}

func TestGenerate_ToleratesCodeFences(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n{\"overview\": \"Fenced.\", \"topics\": [], \"suggested_questions\": []}\n```"}
	g := New(gen, t.TempDir(), nil)
	s, err := g.Generate(context.Background(), testStats(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Overview != "Fenced." {
		t.Errorf("overview = %q", s.Overview)
	}
}

func TestGenerate_FallbackOnGeneratorError(t *testing.T) {
	g := New(&fakeGenerator{err: errors.New("api down")}, t.TempDir(), nil)
	s, err := g.Generate(context.Background(), testStats(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(s.Overview, "1 document(s)") || !strings.Contains(s.Overview, "1 video transcript(s)") {
		t.Errorf("fallback overview = %q", s.Overview)
	}
	if len(s.SuggestedQuestions) == 0 {
		t.Error("fallback has no suggested questions")
	}
}

func TestGenerate_FallbackOnGarbageResponse(t *testing.T) {
	g := New(&fakeGenerator{reply: "Sure! Here is a summary..."}, t.TempDir(), nil)
	s, err := g.Generate(context.Background(), testStats(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Overview == "" {
		t.Error("fallback should still produce an overview")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	gen := &fakeGenerator{reply: `{"overview": "Persisted.", "topics": ["a"], "suggested_questions": ["q?"]}`}
	g := New(gen, dir, nil)
	if _, err := g.Generate(context.Background(), testStats(), nil); err != nil {
		t.Fatal(err)
	}

	loaded, err := New(nil, dir, nil).Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || loaded.Overview != "Persisted." {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestLoad_Absent(t *testing.T) {
	s, err := New(nil, t.TempDir(), nil).Load()
	if err != nil {
		t.Fatal(err)
	}
	if s != nil {
		t.Errorf("expected nil for absent summary, got %+v", s)
	}
}

func TestGenerate_IncludesSamples(t *testing.T) {
	gen := &fakeGenerator{reply: `{"overview": "ok", "topics": [], "suggested_questions": []}`}
	g := New(gen, t.TempDir(), nil)
	samples := map[models.SourceType][]string{
		models.SourcePDF: {"sample passage about rainfall"},
	}
	if _, err := g.Generate(context.Background(), testStats(), samples); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gen.prompt, "sample passage about rainfall") {
		t.Error("prompt missing sample text")
	}
}
