// Package chunker splits source material into fixed-identity chunks.
//
// Chunking is deterministic and restartable: the same source material yields
// a byte-identical chunk set with the same IDs on every run, because IDs are
// a pure function of (source ID, ordinal) and the split points depend only on
// the input text and the configured bounds.
package chunker

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Chunker produces chunks from PDFs and video transcripts.
type Chunker struct {
	// PDF bounds: maximum characters per chunk and overlap between
	// consecutive chunks.
	chunkMaxSize int
	chunkOverlap int
	// Video bounds: a chunk closes at whichever is reached first.
	videoMaxWords int
	videoMaxSpan  float64

	logger *zap.Logger // optional; when set, logs skipped pages
}

// New creates a chunker with the given bounds. logger may be nil.
func New(chunkMaxSize, chunkOverlap, videoMaxWords int, videoMaxSpan float64, logger *zap.Logger) *Chunker {
	if chunkOverlap >= chunkMaxSize {
		chunkOverlap = 0
	}
	return &Chunker{
		chunkMaxSize:  chunkMaxSize,
		chunkOverlap:  chunkOverlap,
		videoMaxWords: videoMaxWords,
		videoMaxSpan:  videoMaxSpan,
		logger:        logger,
	}
}

// normalize trims and collapses whitespace so split points do not depend on
// incidental formatting of the extracted text.
func normalize(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
