package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// ReadTranscript parses the transcript JSON file at path. The expected shape is
//
//	{"video_id": "...", "pdf_reference": "...", "words": [{"id": 1, "timestamp": 0.5, "word": "hello"}, ...]}
//
// When video_id is absent, the file's base name (without extension) is used.
// Word order is preserved exactly as read; monotonicity is enforced by the
// chunker, which rejects out-of-order timestamps instead of re-sorting them.
func ReadTranscript(path string) (*models.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var tr models.Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("%w: parse transcript %s: %v", models.ErrMalformedSource, filepath.Base(path), err)
	}
	if tr.VideoID == "" {
		base := filepath.Base(path)
		tr.VideoID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if len(tr.Words) == 0 {
		return nil, fmt.Errorf("%w: transcript %s has no words", models.ErrMalformedSource, tr.VideoID)
	}
	return &tr, nil
}
