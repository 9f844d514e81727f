package models

// SearchCandidate is a per-query retrieval candidate with its component and
// fused scores. Candidates are never persisted.
type SearchCandidate struct {
	ChunkID      string  `json:"chunk_id"`
	LexicalScore float64 `json:"lexical_score"`
	VectorScore  float64 `json:"vector_score"`
	// HasLexical / HasVector record which strategy produced the candidate.
	// A missing side contributes a normalized score of zero to fusion.
	HasLexical bool    `json:"has_lexical"`
	HasVector  bool    `json:"has_vector"`
	FusedScore float64 `json:"fused_score"`
}
