package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestVectorIndex_SearchRanking(t *testing.T) {
	v, err := NewVectorIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	err = v.Add(
		[]string{"a", "b", "c"},
		[][]float32{
			{1, 0, 0},
			{0.8, 0.6, 0},
			{0, 0, 1},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	hits, err := v.Search(context.Background(), []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits", len(hits))
	}
	if hits[0].ChunkID != "a" || hits[1].ChunkID != "b" {
		t.Errorf("ranking = [%s %s], want [a b]", hits[0].ChunkID, hits[1].ChunkID)
	}
}

func TestVectorIndex_TieBreakByID(t *testing.T) {
	v, _ := NewVectorIndex(2)
	_ = v.Add([]string{"z", "a"}, [][]float32{{1, 0}, {1, 0}})
	hits, err := v.Search(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].ChunkID != "a" || hits[1].ChunkID != "z" {
		t.Errorf("tie not broken by ID: [%s %s]", hits[0].ChunkID, hits[1].ChunkID)
	}
}

func TestVectorIndex_Remove(t *testing.T) {
	v, _ := NewVectorIndex(2)
	_ = v.Add([]string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})
	if err := v.Remove([]string{"a"}); err != nil {
		t.Fatal(err)
	}
	if v.Size() != 1 {
		t.Errorf("size = %d, want 1", v.Size())
	}
	hits, _ := v.Search(context.Background(), []float32{1, 0}, 10)
	for _, h := range hits {
		if h.ChunkID == "a" {
			t.Error("removed vector still returned")
		}
	}
}

func TestVectorIndex_DimensionMismatch(t *testing.T) {
	v, _ := NewVectorIndex(3)
	if err := v.Add([]string{"a"}, [][]float32{{1, 0}}); err == nil {
		t.Error("expected error adding wrong-dimension vector")
	}
	if _, err := v.Search(context.Background(), []float32{1, 0}, 5); err == nil {
		t.Error("expected error searching with wrong-dimension query")
	}
}

func TestVectorIndex_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	v, _ := NewVectorIndex(3)
	_ = v.Add([]string{"a", "b"}, [][]float32{{1, 0, 0}, {0, 0.5, 0.5}})
	if err := v.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewVectorIndex(3)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("loaded size = %d", loaded.Size())
	}
	hits, err := loaded.Search(context.Background(), []float32{0, 0.5, 0.5}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "b" {
		t.Errorf("loaded search = %v", hits)
	}
}

func TestVectorIndex_LoadTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	v, _ := NewVectorIndex(3)
	_ = v.Add([]string{"a", "b"}, [][]float32{{1, 0, 0}, {0, 0.5, 0.5}})
	if err := v.Save(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Cut into the middle of the last vector's bytes.
	if err := os.WriteFile(path, data[:len(data)-5], 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewVectorIndex(3)
	if err := loaded.Load(path); err == nil {
		t.Fatal("expected error loading truncated file")
	}
}

func TestVectorIndex_LoadMissingFile(t *testing.T) {
	v, _ := NewVectorIndex(3)
	// A missing file is an empty index, not an error.
	if err := v.Load(filepath.Join(t.TempDir(), "absent.bin")); err != nil {
		t.Fatal(err)
	}
	if v.Size() != 0 {
		t.Errorf("size = %d, want 0", v.Size())
	}
}

