package chunker

import (
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// pageSpan maps a rune range of the joined document text back to a page number.
type pageSpan struct {
	start, end int // rune offsets, end exclusive
	page       int
}

// ChunkPDF splits a page-indexed PDF document into chunks of at most
// chunkMaxSize characters with chunkOverlap characters of overlap. A split
// never lands mid-sentence when a sentence boundary exists within the bound.
// Empty pages are logged and skipped. Each chunk carries the page range its
// text covers.
func (c *Chunker) ChunkPDF(doc *models.PDFDocument) ([]*models.Chunk, error) {
	var (
		parts []string
		spans []pageSpan
		off   int
	)
	for _, page := range doc.Pages {
		text := normalize(page.Text)
		if text == "" {
			if c.logger != nil {
				c.logger.Debug("skipping empty pdf page",
					zap.String("source_id", doc.SourceID), zap.Int("page", page.Number))
			}
			continue
		}
		if off > 0 {
			off++ // joining space
		}
		n := len([]rune(text))
		spans = append(spans, pageSpan{start: off, end: off + n, page: page.Number})
		parts = append(parts, text)
		off += n
	}
	if len(parts) == 0 {
		return nil, nil
	}

	text := []rune(strings.Join(parts, " "))
	var chunks []*models.Chunk
	ordinal := 0
	pos := 0
	for pos < len(text) {
		end := pos + c.chunkMaxSize
		if end >= len(text) {
			end = len(text)
		} else if cut := lastSentenceEnd(text[pos:end]); cut > 0 {
			end = pos + cut
		}
		segment := strings.TrimSpace(string(text[pos:end]))
		if segment != "" {
			first, last := coveringPages(spans, pos, end)
			chunks = append(chunks, &models.Chunk{
				ID:         models.ChunkID(models.SourcePDF, doc.SourceID, ordinal),
				SourceType: models.SourcePDF,
				SourceID:   doc.SourceID,
				Ordinal:    ordinal,
				Text:       segment,
				PageStart:  first,
				PageEnd:    last,
			})
			ordinal++
		}
		if end >= len(text) {
			break
		}
		next := end - c.chunkOverlap
		if next <= pos {
			next = end
		}
		pos = next
	}
	return chunks, nil
}

// lastSentenceEnd returns the rune offset just past the last sentence
// terminator (. ! ?) in window that is followed by a space or ends the
// window, or 0 when no boundary exists.
func lastSentenceEnd(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '!', '?':
			if i == len(window)-1 || window[i+1] == ' ' {
				return i + 1
			}
		}
	}
	return 0
}

// coveringPages returns the first and last page numbers overlapped by the
// rune range [start, end).
func coveringPages(spans []pageSpan, start, end int) (int, int) {
	first, last := 0, 0
	for _, s := range spans {
		if s.end <= start || s.start >= end {
			continue
		}
		if first == 0 {
			first = s.page
		}
		last = s.page
	}
	return first, last
}
