package chunker

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// ChunkTranscript aggregates consecutive transcript words into chunks bounded
// by videoMaxWords words or videoMaxSpan seconds, whichever is reached first.
// Each chunk carries the [start, end] timestamp range of the words it covers.
//
// A transcript whose timestamps are not strictly increasing is rejected with
// ErrMalformedSource. Word order is semantically meaningful, so out-of-order
// input is never silently re-sorted.
func (c *Chunker) ChunkTranscript(tr *models.Transcript) ([]*models.Chunk, error) {
	for i := 1; i < len(tr.Words); i++ {
		if tr.Words[i].Timestamp <= tr.Words[i-1].Timestamp {
			return nil, fmt.Errorf("%w: transcript %s timestamp %g at word %d not after %g",
				models.ErrMalformedSource, tr.VideoID, tr.Words[i].Timestamp, i, tr.Words[i-1].Timestamp)
		}
	}

	var chunks []*models.Chunk
	ordinal := 0
	start := 0
	flush := func(end int) {
		words := tr.Words[start:end]
		texts := make([]string, len(words))
		for i, w := range words {
			texts[i] = w.Word
		}
		chunks = append(chunks, &models.Chunk{
			ID:         models.ChunkID(models.SourceVideo, tr.VideoID, ordinal),
			SourceType: models.SourceVideo,
			SourceID:   tr.VideoID,
			Ordinal:    ordinal,
			Text:       strings.Join(texts, " "),
			TimeStart:  words[0].Timestamp,
			TimeEnd:    words[len(words)-1].Timestamp,
		})
		ordinal++
		start = end
	}
	for i := range tr.Words {
		if i == start {
			continue
		}
		if i-start >= c.videoMaxWords || tr.Words[i].Timestamp-tr.Words[start].Timestamp > c.videoMaxSpan {
			flush(i)
		}
	}
	if start < len(tr.Words) {
		flush(len(tr.Words))
	}
	return chunks, nil
}
