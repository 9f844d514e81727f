package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/pkg/utils"
)

// VectorIndex is an in-memory brute-force inner-product index over normalized
// vectors (inner product equals cosine similarity). Contents persist to a
// compact binary file per generation.
type VectorIndex struct {
	dimensions int
	mu         sync.RWMutex
	ids        []string
	vectors    [][]float32
}

// NewVectorIndex creates an empty index with the given dimensionality.
func NewVectorIndex(dimensions int) (*VectorIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &VectorIndex{dimensions: dimensions}, nil
}

// Add appends vectors with the given IDs.
func (v *VectorIndex) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, id := range ids {
		if len(vectors[i]) != v.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), v.dimensions)
		}
		vec := make([]float32, v.dimensions)
		copy(vec, vectors[i])
		v.ids = append(v.ids, id)
		v.vectors = append(v.vectors, vec)
	}
	return nil
}

// Remove deletes vectors by ID, rebuilding the backing slices.
func (v *VectorIndex) Remove(ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	newIDs := v.ids[:0]
	newVectors := v.vectors[:0]
	for i, id := range v.ids {
		if !removeSet[id] {
			newIDs = append(newIDs, id)
			newVectors = append(newVectors, v.vectors[i])
		}
	}
	v.ids = newIDs
	v.vectors = newVectors
	return nil
}

// Search returns the top-k vectors by inner product, ranked by descending
// similarity; equal similarities are ordered by chunk ID ascending.
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != v.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), v.dimensions)
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if k <= 0 || len(v.ids) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(v.ids))
	for i, vec := range v.vectors {
		hits[i] = Hit{ChunkID: v.ids[i], Score: utils.Dot(query, vec)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Size returns the number of stored vectors.
func (v *VectorIndex) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.ids)
}

// Save persists the index to path. Format: dimensions (4), count (4), then per
// vector: idLen (4), id bytes, vector (dimensions*4 bytes), little-endian.
func (v *VectorIndex) Save(path string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(v.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(v.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range v.ids {
		idBytes := []byte(id)
		if err := binary.Write(f, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := f.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(v.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load replaces the index contents from path. A missing file is not an error;
// the index is simply left empty. Dimensions must match.
func (v *VectorIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != v.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, v.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ids = make([]string, 0, n)
	v.vectors = make([][]float32, 0, n)
	buf := make([]byte, v.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(f, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(f, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		v.ids = append(v.ids, string(idBytes))
		v.vectors = append(v.vectors, bytesToFloat32Slice(buf))
	}
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, x := range s {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(x))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
