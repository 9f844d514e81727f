package models

// VideoWord is one time-aligned transcript token. Words are ordered by
// Timestamp, strictly increasing within one video.
type VideoWord struct {
	ID        int     `json:"id"`
	Timestamp float64 `json:"timestamp"`
	Word      string  `json:"word"`
}

// Transcript is the full word stream of one video, optionally linked to a
// PDF source it accompanies.
type Transcript struct {
	VideoID      string      `json:"video_id"`
	PDFReference string      `json:"pdf_reference,omitempty"`
	Words        []VideoWord `json:"words"`
}

// PageText is the extracted text of a single PDF page (1-based number).
type PageText struct {
	Number int
	Text   string
}

// PDFDocument is the page-indexed text of one PDF source.
type PDFDocument struct {
	SourceID string
	Pages    []PageText
}
