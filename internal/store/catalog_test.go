package store

import (
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCatalog_RoundTrip(t *testing.T) {
	c := openTestCatalog(t)

	chunks := []*models.Chunk{
		{
			ID: "pdf:aa", SourceType: models.SourcePDF, SourceID: "a.pdf",
			Ordinal: 0, Text: "page text", PageStart: 1, PageEnd: 2,
		},
		{
			ID: "video:bb", SourceType: models.SourceVideo, SourceID: "talk",
			Ordinal: 0, Text: "spoken text", TimeStart: 3.5, TimeEnd: 20,
		},
	}
	if err := c.UpsertChunks(0, chunks); err != nil {
		t.Fatal(err)
	}

	got, err := c.LoadChunks(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d chunks", len(got))
	}
	byID := map[string]*models.Chunk{}
	for _, ch := range got {
		byID[ch.ID] = ch
	}
	pdf := byID["pdf:aa"]
	if pdf == nil || pdf.PageStart != 1 || pdf.PageEnd != 2 || pdf.Text != "page text" {
		t.Errorf("pdf chunk = %+v", pdf)
	}
	video := byID["video:bb"]
	if video == nil || video.TimeStart != 3.5 || video.TimeEnd != 20 {
		t.Errorf("video chunk = %+v", video)
	}
}

func TestCatalog_UpsertOverwrites(t *testing.T) {
	c := openTestCatalog(t)
	ch := &models.Chunk{ID: "pdf:aa", SourceType: models.SourcePDF, SourceID: "a.pdf", Text: "v1"}
	if err := c.UpsertChunks(0, []*models.Chunk{ch}); err != nil {
		t.Fatal(err)
	}
	ch.Text = "v2"
	if err := c.UpsertChunks(0, []*models.Chunk{ch}); err != nil {
		t.Fatal(err)
	}
	got, err := c.LoadChunks(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "v2" {
		t.Errorf("got %+v", got)
	}
}

func TestCatalog_DeleteChunks(t *testing.T) {
	c := openTestCatalog(t)
	chunks := []*models.Chunk{
		{ID: "a", SourceType: models.SourcePDF, SourceID: "x", Text: "one"},
		{ID: "b", SourceType: models.SourcePDF, SourceID: "x", Text: "two"},
	}
	if err := c.UpsertChunks(0, chunks); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteChunks(0, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	got, _ := c.LoadChunks(0)
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("got %+v", got)
	}
}

func TestCatalog_ReplaceGeneration(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.UpsertChunks(0, []*models.Chunk{
		{ID: "old", SourceType: models.SourcePDF, SourceID: "x", Text: "old"},
	}); err != nil {
		t.Fatal(err)
	}

	if err := c.ReplaceGeneration(1, []*models.Chunk{
		{ID: "new", SourceType: models.SourcePDF, SourceID: "y", Text: "new"},
	}); err != nil {
		t.Fatal(err)
	}

	gen, err := c.CurrentGeneration()
	if err != nil {
		t.Fatal(err)
	}
	if gen != 1 {
		t.Errorf("current generation = %d, want 1", gen)
	}
	got, _ := c.LoadChunks(1)
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("generation 1 chunks = %+v", got)
	}
	// Old generation rows were dropped in the same transaction.
	if old, _ := c.LoadChunks(0); len(old) != 0 {
		t.Errorf("generation 0 rows survived: %+v", old)
	}
}

func TestCatalog_FreshGenerationIsZero(t *testing.T) {
	c := openTestCatalog(t)
	gen, err := c.CurrentGeneration()
	if err != nil {
		t.Fatal(err)
	}
	if gen != 0 {
		t.Errorf("fresh generation = %d", gen)
	}
}
