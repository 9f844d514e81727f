package models

// Answer is a generated answer with ordered provenance. Citations appear in
// the order their chunks appeared in the assembled context.
type Answer struct {
	Text string `json:"answer"`
	// AnswerType is the source type of the top citation ("pdf" or "video"),
	// so callers can render page-style or timestamp-style provenance.
	AnswerType SourceType `json:"answer_type"`
	Citations  []Citation `json:"citations"`
}

// KnowledgeSummary describes the indexed corpus: an LLM-generated overview,
// key topics, and example questions. Served as a suggestion when a query
// finds nothing relevant.
type KnowledgeSummary struct {
	Overview           string   `json:"overview"`
	Topics             []string `json:"topics"`
	SuggestedQuestions []string `json:"suggested_questions"`
}
