// Package models defines core data structures for chunks, candidates, contexts, and answers.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SourceType distinguishes the two indexed modalities.
type SourceType string

const (
	SourcePDF   SourceType = "pdf"
	SourceVideo SourceType = "video"
)

// Chunk is a unit of indexed, retrievable text with stable identity.
// The ID is a pure function of (source type, source ID, ordinal), so re-chunking
// the same source material always yields the same IDs.
type Chunk struct {
	ID         string     `json:"id"`
	SourceType SourceType `json:"source_type"`
	SourceID   string     `json:"source_id"`
	Ordinal    int        `json:"ordinal"`
	Text       string     `json:"text"`

	// Page range for PDF chunks (1-based, inclusive).
	PageStart int `json:"page_start,omitempty"`
	PageEnd   int `json:"page_end,omitempty"`

	// Time range in seconds for video chunks.
	TimeStart float64 `json:"time_start,omitempty"`
	TimeEnd   float64 `json:"time_end,omitempty"`

	// Embedding is nil until the chunk has been embedded.
	Embedding []float32 `json:"-"`
}

// ChunkID returns the deterministic chunk ID for (sourceType, sourceID, ordinal).
func ChunkID(sourceType SourceType, sourceID string, ordinal int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", sourceID, ordinal)))
	return string(sourceType) + ":" + hex.EncodeToString(h[:8])
}

// Citation returns the provenance record for the chunk.
func (c *Chunk) Citation() Citation {
	return Citation{
		ChunkID:    c.ID,
		SourceType: c.SourceType,
		SourceID:   c.SourceID,
		PageStart:  c.PageStart,
		PageEnd:    c.PageEnd,
		TimeStart:  c.TimeStart,
		TimeEnd:    c.TimeEnd,
	}
}

// Citation points a piece of answer text back at its source material.
type Citation struct {
	ChunkID    string     `json:"chunk_id"`
	SourceType SourceType `json:"source_type"`
	SourceID   string     `json:"source_id"`
	PageStart  int        `json:"page_start,omitempty"`
	PageEnd    int        `json:"page_end,omitempty"`
	TimeStart  float64    `json:"time_start,omitempty"`
	TimeEnd    float64    `json:"time_end,omitempty"`
}

// Label returns a short human-readable source marker, e.g.
// "report.pdf p.3-5" or "intro.mp4 12.0s-31.5s".
func (c Citation) Label() string {
	switch c.SourceType {
	case SourcePDF:
		if c.PageStart == c.PageEnd {
			return fmt.Sprintf("%s p.%d", c.SourceID, c.PageStart)
		}
		return fmt.Sprintf("%s p.%d-%d", c.SourceID, c.PageStart, c.PageEnd)
	case SourceVideo:
		return fmt.Sprintf("%s %.1fs-%.1fs", c.SourceID, c.TimeStart, c.TimeEnd)
	default:
		return c.SourceID
	}
}
