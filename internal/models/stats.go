package models

// IndexStats reports per-domain index contents.
type IndexStats struct {
	Generation   uint64   `json:"generation"`
	PDFSources   []string `json:"pdf_sources"`
	VideoSources []string `json:"video_sources"`
	PDFChunks    int      `json:"pdf_chunks"`
	VideoChunks  int      `json:"video_chunks"`
}

// IndexMode selects how an index build treats existing contents.
type IndexMode string

const (
	// IndexIncremental upserts chunks by ID and removes stale chunks of
	// re-indexed sources in the same pass.
	IndexIncremental IndexMode = "incremental"
	// IndexRebuild builds a complete new index generation and swaps it in
	// atomically once fully populated.
	IndexRebuild IndexMode = "rebuild"
)

// IndexReport summarizes one index build. A single chunk or source failure
// is recorded here, not fatal to the run.
type IndexReport struct {
	Mode    IndexMode `json:"mode"`
	Indexed int       `json:"indexed"`
	Skipped int       `json:"skipped"`
	Failed  int       `json:"failed"`
	// Failures lists per-source diagnostics for failed items.
	Failures []string `json:"failures,omitempty"`
}
